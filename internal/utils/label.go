package utils

import (
	"strings"
	"unicode"
)

// HumanizeEntity turns a source entity name into an editor-facing label:
// "CheckoutSummaryView" -> "Checkout Summary", "login_form" -> "Login Form".
// Common view-type suffixes are stripped once.
var entitySuffixes = []string{"ViewController", "Controller", "Screen", "View", "Page", "Fragment"}

func HumanizeEntity(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	for _, suf := range entitySuffixes {
		if trimmed := strings.TrimSuffix(name, suf); trimmed != "" && trimmed != name {
			name = trimmed
			break
		}
	}
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return name
	}
	return strings.Join(words, " ")
}
