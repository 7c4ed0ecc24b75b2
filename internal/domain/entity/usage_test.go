package entity

import "testing"

func TestUsageNormalizeComputesTotalWhenMissing(t *testing.T) {
	u := Usage{PromptTokens: 10, CompletionTokens: 5}
	got := u.Normalize()
	if got.TotalTokens != 15 {
		t.Fatalf("got %d, want 15", got.TotalTokens)
	}
}

func TestUsageNormalizeKeepsProviderReportedTotal(t *testing.T) {
	u := Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 99}
	got := u.Normalize()
	if got.TotalTokens != 99 {
		t.Fatalf("got %d, want 99 (provider-reported total preserved)", got.TotalTokens)
	}
}

func TestUsageAddSumsFields(t *testing.T) {
	a := Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	b := Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30}

	sum := a.Add(b)
	if sum.PromptTokens != 30 || sum.CompletionTokens != 15 || sum.TotalTokens != 45 {
		t.Fatalf("got %+v", sum)
	}
}

func TestUsageAddCachedPromptTokensBothNil(t *testing.T) {
	sum := Usage{}.Add(Usage{})
	if sum.CachedPromptTokens != nil {
		t.Fatalf("expected nil, got %v", *sum.CachedPromptTokens)
	}
}

func TestUsageAddCachedPromptTokensBothPresent(t *testing.T) {
	a2, b2 := 4, 6
	a := Usage{CachedPromptTokens: &a2}
	b := Usage{CachedPromptTokens: &b2}

	sum := a.Add(b)
	if sum.CachedPromptTokens == nil || *sum.CachedPromptTokens != 10 {
		t.Fatalf("got %v", sum.CachedPromptTokens)
	}
}

func TestUsageAddCachedPromptTokensOneSided(t *testing.T) {
	v := 7
	a := Usage{CachedPromptTokens: &v}
	sum := a.Add(Usage{})
	if sum.CachedPromptTokens == nil || *sum.CachedPromptTokens != 7 {
		t.Fatalf("got %v", sum.CachedPromptTokens)
	}

	sum2 := Usage{}.Add(a)
	if sum2.CachedPromptTokens == nil || *sum2.CachedPromptTokens != 7 {
		t.Fatalf("got %v", sum2.CachedPromptTokens)
	}
}

func TestUsageAddDoesNotAliasInputPointers(t *testing.T) {
	v := 7
	a := Usage{CachedPromptTokens: &v}
	sum := a.Add(Usage{})
	*sum.CachedPromptTokens = 999
	if *a.CachedPromptTokens != 7 {
		t.Fatalf("Add aliased the input pointer: mutating result changed input to %d", *a.CachedPromptTokens)
	}
}
