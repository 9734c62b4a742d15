package policy

import "regexp"

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern   = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	apiKeyPattern = regexp.MustCompile(`\b(?:gsk|sk)_[A-Za-z0-9]{20,}\b`)
)

// RedactPII masks common high-risk PII patterns and pasted API keys before a
// transcript line is persisted.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	apply := func(re *regexp.Regexp, marker string) {
		next := re.ReplaceAllString(out, marker)
		changed = changed || next != out
		out = next
	}

	apply(apiKeyPattern, "[REDACTED_KEY]")
	apply(emailPattern, "[REDACTED_EMAIL]")
	// Cards before phones so long digit runs are not classified as phone numbers.
	apply(cardPattern, "[REDACTED_CARD]")
	apply(phonePattern, "[REDACTED_PHONE]")

	return out, changed
}
