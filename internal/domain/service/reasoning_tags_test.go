package service

import "testing"

func TestStripReasoningTagsRemovesTerminatedBlock(t *testing.T) {
	in := "before<thinking>secret plan</thinking>after"
	if got := stripReasoningTags(in); got != "beforeafter" {
		t.Fatalf("got %q", got)
	}
}

func TestStripReasoningTagsRemovesMultipleBlocks(t *testing.T) {
	in := "a<thinking>1</thinking>b<thinking>2</thinking>c"
	if got := stripReasoningTags(in); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestStripReasoningTagsDropsTrailingUnterminatedBlock(t *testing.T) {
	in := "kept<thinking>still streaming, never closed"
	if got := stripReasoningTags(in); got != "kept" {
		t.Fatalf("got %q", got)
	}
}

func TestStripReasoningTagsNoTagsUnchanged(t *testing.T) {
	in := "plain assistant reply"
	if got := stripReasoningTags(in); got != in {
		t.Fatalf("got %q", got)
	}
}
