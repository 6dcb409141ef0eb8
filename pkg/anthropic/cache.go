package anthropic

// BuildCachedSystemBlocks returns text as a single system block with a
// one-hour cache breakpoint. Generation sends the same instruction context
// on every turn, so it is cached once per session.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{{
		Text:         text,
		CacheControl: &CacheControl{TTL: "1h"},
	}}
}
