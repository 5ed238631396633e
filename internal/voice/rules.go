package voice

import (
	"fmt"
	"regexp"
	"strings"
)

// rule inspects a normalized utterance and reports whether it produced an
// intent. Rules are evaluated in order and the first match wins.
type rule struct {
	name  string
	apply func(text string, page PageContext) (Intent, bool)
}

var rules = []rule{
	{name: "stop", apply: stopRule},
	{name: "navigate", apply: navigateRule},
	{name: "fill", apply: fillRule},
	{name: "click", apply: clickRule},
	{name: "read", apply: readRule},
	{name: "scroll", apply: scrollRule},
}

var (
	stopWords = regexp.MustCompile(`\b(?:stop|arret|annul|cancel)`)

	navigateTo = regexp.MustCompile(`\b(?:aller|allons|allez|va|navigue|naviguer|ouvre|ouvrir|vers|voir|montre|go|open|navigate|show)\s+(?:(?:a|au|aux|sur|la|le|les|des|du|de|page|vers|to|the)\s+|l'|d')+(.+)`)
	homeWord   = regexp.MustCompile(`\b(?:accueil|home)\b`)

	fillVerbs = regexp.MustCompile(`\b(?:remplir|remplis|remplissez|rempli|entrer|entre|entrez|saisir|saisis|saisissez|mettre|mets|met|ecrire|ecris|ecrivez|taper|tape|tapez|fill|enter|write|type)\b`)
	fillWith  = regexp.MustCompile(`\b(?:remplir|remplis|remplissez|rempli|entrer|entre|entrez|saisir|saisis|saisissez|mettre|mets|met|fill(?:\s+in)?|enter)\s+(?:(?:le|la|les|champ|the|field|my|mon|ma)\s+|l')*(.+?)(?:\s+(?:avec|par|est|vaut|with)\s+|\s*:\s*)(.+)`)
	writeIn   = regexp.MustCompile(`\b(?:ecrire|ecris|ecrivez|taper|tape|tapez|write|type)\s+(.+?)\s+(?:dans|sur|pour|in|into)\s+(?:(?:le|la|les|champ|the|field|my|mon|ma)\s+|l')*(.+)`)
	myFieldIs = regexp.MustCompile(`\b(?:mon|ma|my|le|la)\s+(.+?)\s+(?:est|is)\s+(.+)`)

	clickWords    = regexp.MustCompile(`\b(?:cliqu|appui|appuy|press|valid|envoy|connect|connexion|inscri|login|log\s+in|sign\s*up|click|submit|return|retour|back)`)
	explicitClick = regexp.MustCompile(`\b(?:cliqu|appui|appuy|press|valid|click|submit)`)
	clickFiller   = regexp.MustCompile(`^(?:(?:clique|cliquer|cliquez|appuie|appuyer|appuyez|presse|presser|pressez|press|valide|valider|validez|click|submit|sur|le|la|les|bouton|button|on|the)(?:\s+|$)|l')+`)

	readWords       = regexp.MustCompile(`\b(?:lire|lis|lisez|read)\b|\b(?:contenu|decri|quoi)`)
	scrollDownWords = regexp.MustCompile(`\b(?:descend\w*|bas|down|bottom)\b`)
	scrollUpWords   = regexp.MustCompile(`\b(?:monte|monter|montez|haut|up|top)\b`)
)

// clickOverrides map well-known buttons to their canonical target. Later
// entries take precedence over earlier ones.
var clickOverrides = []struct {
	pattern *regexp.Regexp
	target  string
}{
	{regexp.MustCompile(`connect|login|log\s+in|connexion`), "log in"},
	{regexp.MustCompile(`inscri|sign\s+up|signup`), "request access"},
	{regexp.MustCompile(`return|retour|back`), "return to login"},
	{regexp.MustCompile(`submit|valide|envoyer`), "submit"},
}

const (
	clarifyClick = "Voulez-vous cliquer sur un bouton ?"
	clarifyFill  = "Que voulez-vous saisir, et dans quel champ ?"
)

func stopRule(text string, _ PageContext) (Intent, bool) {
	if stopWords.MatchString(text) {
		return Stop(), true
	}
	return Intent{}, false
}

func navigateRule(text string, _ PageContext) (Intent, bool) {
	if m := navigateTo.FindStringSubmatch(text); m != nil {
		dest := strings.TrimSpace(m[1])
		if homeWord.MatchString(dest) {
			dest = "home"
		}
		if dest != "" {
			return Navigate(dest), true
		}
	}
	if homeWord.MatchString(text) {
		intent := Navigate("home")
		intent.Confidence = 0.9
		return intent, true
	}
	return Intent{}, false
}

func fillRule(text string, page PageContext) (Intent, bool) {
	field, value, ok := "", "", false
	if m := fillWith.FindStringSubmatch(text); m != nil {
		field, value, ok = m[1], m[2], true
	} else if m := writeIn.FindStringSubmatch(text); m != nil {
		field, value, ok = m[2], m[1], true
	} else if m := myFieldIs.FindStringSubmatch(text); m != nil {
		field, value, ok = m[1], m[2], true
	}
	if !ok {
		if fillVerbs.MatchString(text) {
			intent := AskClarification(clarifyFill)
			intent.Confidence = 0.5
			return intent, true
		}
		return Intent{}, false
	}

	field = strings.TrimSpace(field)
	target := MatchField(field, page)
	if target == "" {
		intent := AskClarification(fmt.Sprintf("Je ne trouve pas le champ %q.", field))
		intent.Confidence = 0.5
		return intent, true
	}
	return FillField(target, FormatValue(value, page, target)), true
}

func clickRule(text string, _ PageContext) (Intent, bool) {
	if !clickWords.MatchString(text) {
		return Intent{}, false
	}
	override := ""
	for _, o := range clickOverrides {
		if o.pattern.MatchString(text) {
			override = o.target
		}
	}
	if override != "" {
		return ClickButton(override), true
	}
	target := strings.TrimSpace(clickFiller.ReplaceAllString(text, ""))
	if !explicitClick.MatchString(text) || target == "" {
		intent := AskClarification(clarifyClick)
		intent.Confidence = 0.3
		return intent, true
	}
	return ClickButton(target), true
}

func readRule(text string, _ PageContext) (Intent, bool) {
	if readWords.MatchString(text) {
		return ReadPage(), true
	}
	return Intent{}, false
}

func scrollRule(text string, _ PageContext) (Intent, bool) {
	switch {
	case scrollDownWords.MatchString(text):
		return Scroll(ScrollDown), true
	case scrollUpWords.MatchString(text):
		return Scroll(ScrollUp), true
	}
	return Intent{}, false
}
