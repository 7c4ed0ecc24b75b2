package entity

// Usage is the token-accounting snapshot attached to an assistant message
// and accumulated per conversation in the metrics port.
type Usage struct {
	PromptTokens       int
	CompletionTokens   int
	TotalTokens        int
	CachedPromptTokens *int
}

// Normalize computes total_tokens as prompt + completion when the provider
// did not report it (§4.3). PromptTokens is left as given: summing fresh and
// cached tokens that a provider reports separately is done by that
// provider's adapter (see the anthropic adapter's toEntityUsage).
func (u Usage) Normalize() Usage {
	out := u
	if out.TotalTokens == 0 {
		out.TotalTokens = out.PromptTokens + out.CompletionTokens
	}
	return out
}

// Add implements the additive monoid the metrics port accumulates usage
// with: total usage of a conversation is the sum of every turn's usage.
func (u Usage) Add(other Usage) Usage {
	sum := Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
	switch {
	case u.CachedPromptTokens != nil && other.CachedPromptTokens != nil:
		v := *u.CachedPromptTokens + *other.CachedPromptTokens
		sum.CachedPromptTokens = &v
	case u.CachedPromptTokens != nil:
		v := *u.CachedPromptTokens
		sum.CachedPromptTokens = &v
	case other.CachedPromptTokens != nil:
		v := *other.CachedPromptTokens
		sum.CachedPromptTokens = &v
	}
	return sum
}
