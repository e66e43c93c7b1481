package descriptor

import "github.com/sahilm/fuzzy"

const maxSuggestions = 3

// Suggest returns up to three loaded names that fuzzily match name.
func Suggest(name string, loaded []string) []string {
	matches := fuzzy.Find(name, loaded)
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
