package roster

// Dedupe collapses the accumulated players down to one per merge key,
// preserving first-seen order. Later duplicates are dropped silently.
func Dedupe(players []Player) []Player {
	seen := make(map[string]struct{}, len(players))
	out := make([]Player, 0, len(players))
	for _, p := range players {
		key := p.MergeKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
