package voice

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	spokenAt  = regexp.MustCompile(`\s+(?:at|arobase)\s+`)
	spokenDot = regexp.MustCompile(`\s+(?:dot|point)\s+`)
	spaces    = regexp.MustCompile(`\s+`)
)

// Normalize lowercases the utterance, folds speech-to-text email artifacts
// into symbols and strips diacritics.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("’", "'", "`", "'").Replace(s)
	s = spaces.ReplaceAllString(s, " ")
	s = spokenAt.ReplaceAllString(s, "@")
	s = spokenDot.ReplaceAllString(s, ".")
	s = isolatedA(s)
	return strings.TrimSpace(stripDiacritics(s))
}

// isolatedA turns a standalone "à" into "@" when the following token looks
// like a domain. Plain French prepositions are left alone.
func isolatedA(s string) string {
	tokens := strings.Split(s, " ")
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if tokens[i] == "à" && i > 0 && i+1 < len(tokens) && strings.Contains(tokens[i+1], ".") {
			out[len(out)-1] += "@" + tokens[i+1]
			i++
			continue
		}
		out = append(out, tokens[i])
	}
	return strings.Join(out, " ")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func compact(s string) string {
	return spaces.ReplaceAllString(strings.ToLower(s), "")
}
