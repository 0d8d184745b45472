package dispatch

import "github.com/sahilm/fuzzy"

// Suggest returns the registered name closest to name, or "" when nothing
// matches.
func (r *Registry) Suggest(name string) string {
	if name == "" {
		return ""
	}
	matches := fuzzy.Find(name, r.Names())
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
