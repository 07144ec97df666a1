// Package synth generates synthetic survey records with the raw field
// layout of the loneliness study.  The records are used in tests and
// by the simulate command.
package synth

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/brunomontezano/covidpsy/survey"
)

// Options control the simulated population.
type Options struct {

	// Seed initializes the random source; equal seeds give equal
	// records.
	Seed uint64

	// LonelyRate is the probability of a baseline loneliness total of
	// 6 or more.
	LonelyRate float64

	// AttritionRate is the probability that the follow-up total is
	// missing.
	AttritionRate float64

	// MissingRate is the probability that income or religion is
	// missing.
	MissingRate float64

	// PerfectPredictor makes social distancing coincide with the
	// outcome: respondents lonely at follow-up practice it, others do
	// not.
	PerfectPredictor bool
}

// DefaultOptions returns a population resembling a two-wave online
// survey.
func DefaultOptions() Options {
	return Options{
		Seed:          20200501,
		LonelyRate:    0.3,
		AttritionRate: 0.2,
		MissingRate:   0.02,
	}
}

// choice is a discrete distribution over labels.
type choice struct {
	labels []string
	dist   distuv.Categorical
}

func newChoice(src rand.Source, labels []string, probs []float64) *choice {
	if len(labels) != len(probs) {
		msg := fmt.Sprintf("newChoice: %d labels and %d probabilities\n", len(labels), len(probs))
		panic(msg)
	}
	return &choice{labels: labels, dist: distuv.NewCategorical(probs, src)}
}

func (c *choice) draw() string {
	return c.labels[int(c.dist.Rand())]
}

// educationGroups maps the detailed education labels to the grouped
// labels.
var educationGroups = []struct {
	detail string
	group  string
}{
	{"Incomplete elementary", "Elementary"},
	{"Complete elementary", "Elementary"},
	{"Complete high school", "High school"},
	{"Incomplete higher education", "High school"},
	{"Complete higher education", "Higher education"},
	{"Specialization", "Postgraduate"},
	{"Masters or doctorate", "Postgraduate"},
}

// Generate returns n simulated raw survey records.  Besides the
// whitelisted fields the records hold a respondent id and a region.
func Generate(n int, opts Options) *survey.RawTable {

	src := rand.NewSource(opts.Seed)
	rng := rand.New(src)

	sex := newChoice(src, []string{"Male", "Female"}, []float64{0.35, 0.65})
	orient := newChoice(src, []string{"Heterosexual", "Non-heterosexual"}, []float64{0.8, 0.2})
	skin := newChoice(src, []string{"White", "Brown", "Black", "Yellow", "Indigenous"},
		[]float64{0.6, 0.22, 0.12, 0.04, 0.02})
	educ := distuv.NewCategorical([]float64{0.04, 0.06, 0.2, 0.2, 0.25, 0.15, 0.1}, src)
	income := newChoice(src, []string{"Up to 1 minimum wage", "1 to 3 minimum wages",
		"3 to 6 minimum wages", "6 to 9 minimum wages", "More than 9 minimum wages"},
		[]float64{0.1, 0.25, 0.3, 0.2, 0.15})
	employ := newChoice(src, []string{"Employed", "Unemployed", "Student", "Retired"},
		[]float64{0.55, 0.12, 0.2, 0.13})
	audit := newChoice(src, []string{"Low risk", "Moderate risk", "High risk", "Probable dependence"},
		[]float64{0.7, 0.2, 0.06, 0.04})
	cannabis := newChoice(src, []string{"Never", "Monthly or less", "2-4 times a month",
		"2-3 times a week", "4 or more times a week"}, []float64{0.8, 0.08, 0.05, 0.04, 0.03})
	ipaq := newChoice(src, []string{"Low", "Moderate", "High"}, []float64{0.35, 0.4, 0.25})
	quality := newChoice(src, []string{"Poor", "Fair", "Good", "Excellent"}, []float64{0.15, 0.3, 0.4, 0.15})
	marital := newChoice(src, []string{"Single", "Married", "Divorced", "Widowed"},
		[]float64{0.45, 0.4, 0.11, 0.04})
	religion := newChoice(src, []string{"Has religion", "No religion"}, []float64{0.7, 0.3})
	region := newChoice(src, []string{"North", "Northeast", "Center-West", "Southeast", "South"},
		[]float64{0.05, 0.15, 0.1, 0.45, 0.25})

	coin := distuv.Uniform{Min: 0, Max: 1, Src: src}
	sw := distuv.LogNormal{Mu: 0, Sigma: 0.4, Src: src}
	aw := distuv.Exponential{Rate: 2, Src: src}
	hsize := distuv.Poisson{Lambda: 1.8, Src: src}
	phq := distuv.Poisson{Lambda: 7, Src: src}

	cols := make(map[string][]string)
	num := make(map[string][]float64)
	ids := make([]float64, n)

	for i := 0; i < n; i++ {

		ids[i] = float64(i + 1)

		by := float64(1940 + rng.Intn(63))
		num["birth_year"] = append(num["birth_year"], by)

		s := sex.draw()
		cols["sex_birth"] = append(cols["sex_birth"], s)
		cols["sexual_orientation"] = append(cols["sexual_orientation"], orient.draw())
		cols["skin_color"] = append(cols["skin_color"], skin.draw())

		k := int(educ.Rand())
		cols["education"] = append(cols["education"], educationGroups[k].detail)
		cols["education_grouped"] = append(cols["education_grouped"], educationGroups[k].group)

		inc := income.draw()
		if coin.Rand() < opts.MissingRate {
			inc = ""
		}
		cols["household_income"] = append(cols["household_income"], inc)
		num["household_size"] = append(num["household_size"], math.Min(1+hsize.Rand(), 8))
		cols["employment_status"] = append(cols["employment_status"], employ.draw())

		dep := math.Min(phq.Rand(), 27)
		anx := math.Min(math.Round(0.6*dep+6*coin.Rand()), 21)
		num["phq_total"] = append(num["phq_total"], dep)
		num["gad_total"] = append(num["gad_total"], anx)

		cols["audit_class"] = append(cols["audit_class"], audit.draw())
		cols["cannabis_freq"] = append(cols["cannabis_freq"], cannabis.draw())

		act := ipaq.draw()
		cols["ipaq_category"] = append(cols["ipaq_category"], act)
		active := "Active"
		if act == "Low" {
			active = "Inactive"
		}
		cols["ipaq_active"] = append(cols["ipaq_active"], active)

		sleep := quality.draw()
		friend := quality.draw()
		cols["sleep_quality"] = append(cols["sleep_quality"], sleep)
		cols["friend_relationship"] = append(cols["friend_relationship"], friend)
		cols["family_relationship"] = append(cols["family_relationship"], quality.draw())

		mar := marital.draw()
		cols["marital_status"] = append(cols["marital_status"], mar)

		rel := religion.draw()
		if coin.Rand() < opts.MissingRate {
			rel = ""
		}
		cols["religion"] = append(cols["religion"], rel)

		num["sampling_weight"] = append(num["sampling_weight"], sw.Rand())
		num["attrition_weight"] = append(num["attrition_weight"], 1+aw.Rand())

		// Incidence risk on the log scale.
		lp := -2.1 + 0.08*(dep-7)
		if sleep == "Poor" || sleep == "Fair" {
			lp += 0.5
		}
		if friend == "Poor" || friend == "Fair" {
			lp += 0.4
		}
		if mar == "Married" {
			lp -= 0.3
		}
		if s == "Female" {
			lp += 0.2
		}
		event := coin.Rand() < math.Min(math.Exp(lp), 0.95)

		w1 := float64(rng.Intn(6))
		if coin.Rand() < opts.LonelyRate {
			w1 = float64(6 + rng.Intn(4))
		}
		w4 := float64(rng.Intn(6))
		if event {
			w4 = float64(6 + rng.Intn(4))
		}
		if coin.Rand() < opts.AttritionRate {
			w4 = math.NaN()
		}
		num["loneliness_w1"] = append(num["loneliness_w1"], w1)
		num["loneliness_w4"] = append(num["loneliness_w4"], w4)

		dist := "Not practicing"
		if opts.PerfectPredictor {
			if event {
				dist = "Practicing"
			}
		} else if coin.Rand() < 0.7 {
			dist = "Practicing"
		}
		cols["social_distancing"] = append(cols["social_distancing"], dist)

		cols["region"] = append(cols["region"], region.draw())
	}

	var columns []*survey.Column
	columns = append(columns, survey.NewNumeric("id", ids))
	for _, na := range survey.Whitelist {
		if x, ok := num[na]; ok {
			columns = append(columns, survey.NewNumeric(na, x))
		} else {
			columns = append(columns, survey.NewText(na, cols[na]))
		}
	}
	columns = append(columns, survey.NewText("region", cols["region"]))

	rt, err := survey.NewRawTable(columns)
	if err != nil {
		panic(err)
	}

	return rt
}
