package groq

import "strings"

// DefaultModels are offered when GROQ_MODELS is unset.
var DefaultModels = []string{"mixtral-8x7b-32768", "llama2-70b-4096"}

// Models is the enumerated set of selectable model identifiers.
type Models []string

// ParseModels splits a comma separated list, dropping blanks and duplicates.
func ParseModels(raw string) Models {
	var out Models
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (m Models) Valid(id string) bool {
	for _, v := range m {
		if v == id {
			return true
		}
	}
	return false
}

// Default returns the first model, or "" when the set is empty.
func (m Models) Default() string {
	if len(m) == 0 {
		return ""
	}
	return m[0]
}
