package features

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// LevelError reports a raw categorical value that no recoding rule
// matches.
type LevelError struct {
	Field string
	Row   int
	Value string
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("features: field '%s' row %d: unexpected value %q", e.Field, e.Row, e.Value)
}

// recoding maps the labels of a raw field to the levels of a derived
// categorical feature.
type recoding struct {

	// Source is the raw field name.
	Source string

	// Levels are the derived levels, the reference level first.
	Levels []string

	// Rules maps raw labels to derived levels.
	Rules map[string]string
}

// identity returns a recoding that keeps the raw labels.
func identity(source string, levels ...string) recoding {
	rules := make(map[string]string)
	for _, l := range levels {
		rules[l] = l
	}
	return recoding{Source: source, Levels: levels, Rules: rules}
}

var (
	worseBetter = map[string]string{
		"Poor":      "Worse",
		"Fair":      "Worse",
		"Good":      "Better",
		"Excellent": "Better",
	}
)

// recodings holds the categorical features, keyed by feature name.
var recodings = map[string]recoding{
	"gender_birth": identity("sex_birth", "Male", "Female"),
	"heterosexual": {
		Source: "sexual_orientation",
		Levels: []string{"Yes", "No"},
		Rules: map[string]string{
			"Heterosexual":     "Yes",
			"Non-heterosexual": "No",
		},
	},
	"color": {
		Source: "skin_color",
		Levels: []string{"White", "Non-white"},
		Rules: map[string]string{
			"White":      "White",
			"Black":      "Non-white",
			"Brown":      "Non-white",
			"Yellow":     "Non-white",
			"Indigenous": "Non-white",
		},
	},
	"education_grouped": identity("education_grouped", "Elementary", "High school", "Higher education", "Postgraduate"),
	"household_income": {
		Source: "household_income",
		Levels: []string{"Lower", "Middle", "Upper"},
		Rules: map[string]string{
			"Up to 1 minimum wage":      "Lower",
			"1 to 3 minimum wages":      "Lower",
			"3 to 6 minimum wages":      "Middle",
			"6 to 9 minimum wages":      "Upper",
			"More than 9 minimum wages": "Upper",
		},
	},
	"employment_status": identity("employment_status", "Employed", "Unemployed", "Student", "Retired"),
	"physical_activity": identity("ipaq_category", "Low", "Moderate", "High"),
	"sleep_quality": {
		Source: "sleep_quality",
		Levels: []string{"Worse", "Better"},
		Rules:  worseBetter,
	},
	"alcohol_risk": {
		Source: "audit_class",
		Levels: []string{"Low risk", "High risk"},
		Rules: map[string]string{
			"Low risk":            "Low risk",
			"Moderate risk":       "High risk",
			"High risk":           "High risk",
			"Probable dependence": "High risk",
		},
	},
	"cannabis_use": {
		Source: "cannabis_freq",
		Levels: []string{"No", "Yes"},
		Rules: map[string]string{
			"Never":                  "No",
			"Monthly or less":        "Yes",
			"2-4 times a month":      "Yes",
			"2-3 times a week":       "Yes",
			"4 or more times a week": "Yes",
		},
	},
	"social_distancing": {
		Source: "social_distancing",
		Levels: []string{"No", "Yes"},
		Rules: map[string]string{
			"Not practicing": "No",
			"Practicing":     "Yes",
		},
	},
	"marital_status": identity("marital_status", "Single", "Married", "Divorced", "Widowed"),
	"friend_relationship": {
		Source: "friend_relationship",
		Levels: []string{"Worse", "Better"},
		Rules:  worseBetter,
	},
	"family_relationship": {
		Source: "family_relationship",
		Levels: []string{"Worse", "Better"},
		Rules:  worseBetter,
	},
	"religion": {
		Source: "religion",
		Levels: []string{"No", "Yes"},
		Rules: map[string]string{
			"No religion":  "No",
			"Has religion": "Yes",
		},
	},
}

// RawLabels returns the raw labels accepted for a categorical feature,
// ordered by derived level and then alphabetically.
func RawLabels(feature string) []string {

	rc, ok := recodings[feature]
	if !ok {
		return nil
	}

	pos := make(map[string]int)
	for j, l := range rc.Levels {
		pos[l] = j
	}

	var labels []string
	for raw := range rc.Rules {
		labels = append(labels, raw)
	}
	sort.Slice(labels, func(i, j int) bool {
		pi, pj := pos[rc.Rules[labels[i]]], pos[rc.Rules[labels[j]]]
		if pi != pj {
			return pi < pj
		}
		return labels[i] < labels[j]
	})

	return labels
}

// normalizeLabel returns the matching key for a raw label.
func normalizeLabel(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// matcher resolves raw labels to level codes.
type matcher struct {
	feature string
	rc      recoding
	codes   map[string]int
}

func newMatcher(feature string) *matcher {

	rc := recodings[feature]
	pos := make(map[string]int)
	for j, l := range rc.Levels {
		pos[l] = j
	}

	codes := make(map[string]int)
	for raw, lev := range rc.Rules {
		j, ok := pos[lev]
		if !ok {
			msg := fmt.Sprintf("features: rule for %s maps to unknown level '%s'\n", feature, lev)
			panic(msg)
		}
		codes[normalizeLabel(raw)] = j
	}

	return &matcher{feature: feature, rc: rc, codes: codes}
}

// code returns the level code of a raw label.
func (m *matcher) code(label string, row int) (int, error) {
	j, ok := m.codes[normalizeLabel(label)]
	if !ok {
		return -1, &LevelError{Field: m.rc.Source, Row: row, Value: label}
	}
	return j, nil
}
