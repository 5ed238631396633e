// Package voice turns spoken or typed commands into UI intents using an
// ordered table of keyword rules.
package voice

// Parse normalizes raw and returns the intent of the first matching rule,
// or an AskClarification without message when none applies.
func Parse(raw string, page PageContext) Intent {
	text := Normalize(raw)
	if text == "" {
		return AskClarification("")
	}
	for _, r := range rules {
		if intent, ok := r.apply(text, page); ok {
			return intent
		}
	}
	return AskClarification("")
}

// RuleNames lists the rules in evaluation order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}
