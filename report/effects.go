package report

import (
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/brunomontezano/covidpsy/hier"
	"github.com/brunomontezano/covidpsy/regress"
)

// Number is a float64 that is written to JSON as null when it is not
// finite.
type Number float64

// MarshalJSON implements json.Marshaler.
func (x Number) MarshalJSON() ([]byte, error) {
	f := float64(x)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// EffectTerm is one term of a block in the JSON export.
type EffectTerm struct {
	Term        string `json:"term"`
	Variable    string `json:"variable"`
	Level       string `json:"level,omitempty"`
	Estimate    Number `json:"estimate"`
	StdErr      Number `json:"std_err"`
	RR          Number `json:"rr"`
	Lower       Number `json:"lower"`
	Upper       Number `json:"upper"`
	PValue      Number `json:"p"`
	Significant bool   `json:"significant,omitempty"`
}

// EffectBlock is one block in the JSON export.
type EffectBlock struct {
	Block      int          `json:"block"`
	Predictors []string     `json:"predictors"`
	Error      string       `json:"error,omitempty"`
	NumObs     int          `json:"n"`
	LogLike    Number       `json:"loglike"`
	AIC        Number       `json:"aic"`
	BIC        Number       `json:"bic"`
	CIMethod   string       `json:"ci_method,omitempty"`
	Empty      []string     `json:"unobserved_levels,omitempty"`
	Terms      []EffectTerm `json:"terms"`
}

// EffectEntry is the retention decision for a predictor.
type EffectEntry struct {
	Predictor string `json:"predictor"`
	Domain    string `json:"domain"`
	Block     int    `json:"block"`
	MinP      Number `json:"min_p"`
	Retained  bool   `json:"retained"`
}

// Effects is the consolidated effect size export.
type Effects struct {
	Alpha   Number        `json:"alpha"`
	Entries []EffectEntry `json:"entries"`
	Blocks  []EffectBlock `json:"blocks"`
}

// NewEffects collects the hierarchical results for export.
func NewEffects(res *hier.Result) *Effects {

	ef := &Effects{Alpha: Number(res.Alpha), Entries: []EffectEntry{}}

	for _, e := range res.Entries {
		ef.Entries = append(ef.Entries, EffectEntry{
			Predictor: e.Predictor,
			Domain:    e.Domain.String(),
			Block:     e.Block,
			MinP:      Number(e.MinP),
			Retained:  e.Retained,
		})
	}

	final := hier.NumBlocks
	for _, b := range res.Blocks {
		eb := EffectBlock{
			Block:      b.Index,
			Predictors: append([]string{}, b.Predictors...),
			Terms:      []EffectTerm{},
		}
		if b.Result == nil {
			eb.Error = errString(b.Err)
			eb.LogLike = Number(math.NaN())
			eb.AIC = Number(math.NaN())
			eb.BIC = Number(math.NaN())
			ef.Blocks = append(ef.Blocks, eb)
			continue
		}

		mr := b.Result
		eb.NumObs = mr.NumObs
		eb.LogLike = Number(mr.LogLike)
		eb.AIC = Number(mr.AIC)
		eb.BIC = Number(mr.BIC)
		eb.CIMethod = mr.CIMethod
		eb.Empty = mr.Empty
		for _, t := range mr.Terms {
			et := effectTerm(t)
			et.Significant = b.Index == final && res.Significant(t)
			eb.Terms = append(eb.Terms, et)
		}
		ef.Blocks = append(ef.Blocks, eb)
	}

	return ef
}

func effectTerm(t regress.Term) EffectTerm {
	return EffectTerm{
		Term:     t.Name,
		Variable: t.Variable,
		Level:    t.Level,
		Estimate: Number(t.Estimate),
		StdErr:   Number(t.StdErr),
		RR:       Number(t.RR),
		Lower:    Number(t.RRLower),
		Upper:    Number(t.RRUpper),
		PValue:   Number(t.PValue),
	}
}

// WriteJSON writes the effects as indented JSON.
func (ef *Effects) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ef)
}
