package extract

import (
	"regexp"

	"flowmap/internal/types"
)

// Extraction is deliberately heuristic. The rule tables below are plain
// data, decoupled from the scanning control flow, so individual rules can be
// tested, reordered, and extended without touching the extractor.

// entityRules detect the defining entity of a screen source file. The first
// match wins; capture group 1 is the entity name.
var entityRules = []*regexp.Regexp{
	regexp.MustCompile(`(?m)\bstruct\s+([A-Z]\w*)\s*:\s*[^{\n]*\bView\b`),
	regexp.MustCompile(`(?m)\bclass\s+([A-Z]\w*)\s*:\s*[^{\n]*ViewController\b`),
}

// edgeRule pairs a source pattern with the navigation mechanism it
// represents. Capture group 1 is the target entity name.
type edgeRule struct {
	Mechanism string
	Pattern   *regexp.Regexp
}

// edgeRules is evaluated in order; every match contributes one edge.
// Edges are deduplicated by (target, mechanism), first seen wins.
var edgeRules = []edgeRule{
	{"navigation-link", regexp.MustCompile(`NavigationLink\s*\(\s*destination:\s*([A-Z]\w*)\s*\(`)},
	{"navigation-destination", regexp.MustCompile(`\.navigationDestination\s*\([^)]*\)\s*\{[^{}]*?([A-Z]\w*)\s*\(`)},
	{"sheet", regexp.MustCompile(`\.sheet\s*\([^)]*\)\s*\{[^{}]*?([A-Z]\w*)\s*\(`)},
	{"full-screen-cover", regexp.MustCompile(`\.fullScreenCover\s*\([^)]*\)\s*\{[^{}]*?([A-Z]\w*)\s*\(`)},
	{"popover", regexp.MustCompile(`\.popover\s*\([^)]*\)\s*\{[^{}]*?([A-Z]\w*)\s*\(`)},
	{"push", regexp.MustCompile(`pushViewController\s*\(\s*([A-Z]\w*)\s*\(`)},
	{"present", regexp.MustCompile(`\bpresent\s*\(\s*([A-Z]\w*)\s*\(`)},
	{"segue", regexp.MustCompile(`performSegue\s*\(\s*withIdentifier:\s*"(\w+)"`)},
}

// Category inference markers.
var (
	reInputControl = regexp.MustCompile(`\b(?:TextField|SecureField|TextEditor|Picker|DatePicker|Toggle|Slider|Stepper)\s*\(|\bUIText(?:Field|View)\b`)
	reConditional  = regexp.MustCompile(`\b(?:if|guard|switch)\s`)
	reNavigation   = regexp.MustCompile(`NavigationLink|\.navigationDestination|\.sheet\s*\(|\.fullScreenCover|pushViewController|\bpresent\s*\(|performSegue`)
	reAction       = regexp.MustCompile(`\bButton\s*\(|\.onTapGesture|\bUIButton\b`)
	reDismiss      = regexp.MustCompile(`\bdismiss\s*\(\s*\)|presentationMode\.wrappedValue\.dismiss|\.dismiss\s*\(|dismiss\s*\(\s*animated|popViewController`)
	reRenderable   = regexp.MustCompile(`\bvar\s+body\s*:|\bloadView\s*\(`)
	reLifecycle    = regexp.MustCompile(`\.onAppear\b|\.task\s*\{|\bviewDidLoad\s*\(|\bviewWillAppear\s*\(|\bscenePhase\b`)
)

// conditionalWindow bounds how far past a conditional the extractor looks
// for a navigation construct when testing for a decision screen.
const conditionalWindow = 280

// categoryRule is one entry of the inference cascade.
type categoryRule struct {
	Name     string
	Category types.Category
	Match    func(src string) bool
}

// categoryRules is the first-match-wins cascade, evaluated top to bottom.
// Order is part of the contract: input beats decision beats action beats
// system; display is the fallthrough.
var categoryRules = []categoryRule{
	{
		Name:     "interactive-input-controls",
		Category: types.CategoryInput,
		Match:    func(src string) bool { return reInputControl.MatchString(src) },
	},
	{
		Name:     "conditional-branch-into-navigation",
		Category: types.CategoryDecision,
		Match:    hasConditionalNavigation,
	},
	{
		Name:     "action-with-dismiss",
		Category: types.CategoryAction,
		Match: func(src string) bool {
			return reAction.MatchString(src) && reDismiss.MatchString(src)
		},
	},
	{
		Name:     "no-render-or-lifecycle-only",
		Category: types.CategorySystem,
		Match: func(src string) bool {
			if !reRenderable.MatchString(src) {
				return true
			}
			return reLifecycle.MatchString(src) && !reAction.MatchString(src)
		},
	},
	{
		Name:     "default-display",
		Category: types.CategoryDisplay,
		Match:    func(string) bool { return true },
	},
}

// hasConditionalNavigation reports a conditional branch that leads into a
// navigation construct within a bounded window.
func hasConditionalNavigation(src string) bool {
	for _, loc := range reConditional.FindAllStringIndex(src, -1) {
		end := loc[1] + conditionalWindow
		if end > len(src) {
			end = len(src)
		}
		if reNavigation.MatchString(src[loc[1]:end]) {
			return true
		}
	}
	return false
}
