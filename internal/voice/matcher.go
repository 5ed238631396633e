package voice

import "strings"

const (
	scoreExact    = 100
	scoreContains = 80
	scoreWithin   = 70
)

// MatchField resolves a spoken field name against the page fields. Each field
// keeps its best score over id, name, label, placeholder and type; the first
// field with the highest score wins. It returns "" when nothing matches.
func MatchField(spoken string, page PageContext) string {
	query := compact(spoken)
	if query == "" {
		return ""
	}
	best, bestScore := "", 0
	for _, field := range page.Fields {
		key := field.ID
		if key == "" {
			key = field.Name
		}
		if key == "" {
			continue
		}
		if score := fieldScore(query, field); score > bestScore {
			best, bestScore = key, score
		}
	}
	return best
}

func fieldScore(query string, field Field) int {
	score := 0
	for _, raw := range []string{field.ID, field.Name, field.Label, field.Placeholder, field.Type} {
		candidate := compact(stripDiacritics(raw))
		if candidate == "" {
			continue
		}
		s := 0
		switch {
		case candidate == query:
			s = scoreExact
		case strings.Contains(candidate, query):
			s = scoreContains
		case strings.Contains(query, candidate):
			s = scoreWithin
		}
		if s > score {
			score = s
		}
	}
	return score
}

// FormatValue adapts a spoken value to the target field. Email-like fields
// lose their whitespace and get a missing "@" restored.
func FormatValue(value string, page PageContext, fieldID string) string {
	v := strings.TrimSpace(value)
	if !emailLike(page, fieldID) {
		return v
	}
	v = strings.ToLower(v)
	v = strings.ReplaceAll(v, "à", "@")
	if !strings.Contains(v, "@") && strings.Contains(v, ".") {
		v = strings.Replace(v, " a ", "@", 1)
	}
	return compact(v)
}

func emailLike(page PageContext, fieldID string) bool {
	for _, field := range page.Fields {
		if field.ID != fieldID && (field.ID != "" || field.Name != fieldID) {
			continue
		}
		return strings.Contains(strings.ToLower(field.ID), "mail") || strings.Contains(strings.ToLower(field.Name), "mail")
	}
	return strings.Contains(strings.ToLower(fieldID), "mail")
}
