// Package pipeline runs the full analysis: the cohort is built from the
// raw survey, the features are derived, then the weighted summaries,
// the domain screenings and the hierarchical models are computed and
// written to the output directory.
//
// All stages are deterministic, so two runs over the same input and
// configuration write identical files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/brunomontezano/covidpsy/cohort"
	"github.com/brunomontezano/covidpsy/features"
	"github.com/brunomontezano/covidpsy/hier"
	"github.com/brunomontezano/covidpsy/internal/config"
	"github.com/brunomontezano/covidpsy/regress"
	"github.com/brunomontezano/covidpsy/report"
	"github.com/brunomontezano/covidpsy/screen"
	"github.com/brunomontezano/covidpsy/summary"
	"github.com/brunomontezano/covidpsy/survey"
)

// Options configure the analysis stages.
type Options struct {
	Features features.Options
	Screen   screen.Options
	Hier     hier.Options

	Log *slog.Logger
}

// DefaultOptions returns the default settings of every stage.
func DefaultOptions() Options {
	return Options{
		Features: features.DefaultOptions(),
		Screen:   screen.DefaultOptions(),
		Hier:     hier.DefaultOptions(),
	}
}

// NewOptions builds the stage options from a configuration.
func NewOptions(cfg *config.Config, log *slog.Logger) Options {

	ro := regress.DefaultOptions()
	ro.ConfLevel = cfg.ConfLevel
	ro.CIMethod = cfg.CIMethod
	ro.MaxIter = cfg.MaxIter
	ro.Log = log

	opts := DefaultOptions()
	opts.Log = log
	opts.Features.ReferenceYear = cfg.ReferenceYear
	opts.Features.IncludeAgeCubic = cfg.IncludeAgeCubic
	opts.Screen.Threshold = cfg.ScreenThreshold
	opts.Screen.Regress = ro
	opts.Hier.EntryThreshold = cfg.EntryThreshold
	opts.Hier.Alpha = cfg.ReportAlpha
	opts.Hier.Regress = ro

	return opts
}

// Analysis holds the results of every stage.
type Analysis struct {
	Flow      cohort.Flow
	Table     *features.Table
	Summaries []*summary.Summary
	Screens   []*screen.Report
	Hier      *hier.Result
}

// Analyze runs the analysis stages on a raw survey table.  The context
// is checked between stages.
func Analyze(ctx context.Context, raw *survey.RawTable, opts Options) (*Analysis, error) {

	lg := opts.Log
	if lg == nil {
		lg = slog.New(discard{})
	}

	ch, flow, err := cohort.Build(raw)
	if err != nil {
		return nil, err
	}
	lg.Info("cohort built", "records", flow.Raw, "both_present", flow.BothPresent, "at_risk", flow.AtRisk,
		"incident", flow.Incident)

	tab, err := features.Transform(ch, opts.Features)
	if err != nil {
		return nil, err
	}
	if dg := tab.Degenerate(); len(dg) > 0 {
		lg.Warn("degenerate features", "fields", strings.Join(dg, ","))
	}

	a := &Analysis{Flow: flow, Table: tab}

	for _, scheme := range summary.Schemes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := summary.Summarize(tab, scheme)
		if err != nil {
			return nil, err
		}
		a.Summaries = append(a.Summaries, s)
	}

	for _, d := range features.Domains {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := screen.Screen(tab, d, opts.Screen)
		if err != nil {
			return nil, err
		}
		lg.Info("domain screened", "domain", d, "candidates", len(rep.Predictors), "retained",
			len(rep.Retained()))
		a.Screens = append(a.Screens, rep)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.Hier, err = hier.Fit(tab, a.Screens, opts.Hier)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Write writes the report files to dir and returns their paths, in the
// order they were written.
func (a *Analysis) Write(dir, plotFormat string, log *slog.Logger) ([]string, error) {

	if err := report.CheckPlotFormat(plotFormat); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	both := func(base string, t *report.Table) error {
		p, err := report.WriteCSV(dir, base, t)
		if err != nil {
			return err
		}
		paths = append(paths, p)
		p, err = report.WriteText(dir, base, t)
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	}

	p, err := report.WriteCSV(dir, "flow", report.FlowTable(a.Flow))
	if err != nil {
		return paths, err
	}
	paths = append(paths, p)

	for _, s := range a.Summaries {
		t := report.SummaryTable(s)
		if dg := a.Table.Degenerate(); len(dg) > 0 {
			t.Msg = append(t.Msg, "Degenerate features: "+strings.Join(dg, ", "))
		}
		if err := both("summary_"+s.Scheme.String(), t); err != nil {
			return paths, err
		}
	}

	for _, rep := range a.Screens {
		if err := both("screen_"+rep.Domain.String(), report.ScreenTable(rep)); err != nil {
			return paths, err
		}
	}

	for k := 1; k <= hier.NumBlocks; k++ {
		p, err := report.WriteCSV(dir, fmt.Sprintf("entry_block%d", k), report.EntryTable(a.Hier, k))
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	if err := both("hierarchical", report.HierTable(a.Hier)); err != nil {
		return paths, err
	}
	p, err = report.WriteCSV(dir, "hierarchical_fit", report.HierFitTable(a.Hier))
	if err != nil {
		return paths, err
	}
	paths = append(paths, p)

	p, err = report.WriteEffects(dir, a.Hier)
	if err != nil {
		return paths, err
	}
	paths = append(paths, p)

	pp, err := report.WriteForest(dir, plotFormat, a.Hier)
	paths = append(paths, pp...)
	if errors.Is(err, report.ErrNoEffects) {
		if log != nil {
			log.Warn("forest plots not written", "error", err)
		}
	} else if err != nil {
		return paths, err
	}

	return paths, nil
}

// Run reads the input named in the configuration, analyzes it and
// writes the reports.  The run ID is logged and, if a results database
// is configured, used to key the stored results.
func Run(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Analysis, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Input == "" {
		return nil, fmt.Errorf("no input file")
	}
	if log == nil {
		log = slog.New(discard{})
	}

	runID := uuid.NewString()
	log = log.With("run", runID)
	log.Info("reading survey", "input", cfg.Input)

	raw, err := survey.Read(cfg.Input)
	if err != nil {
		return nil, err
	}

	a, err := Analyze(ctx, raw, NewOptions(cfg, log))
	if err != nil {
		return nil, err
	}

	paths, err := a.Write(cfg.OutputDir, cfg.PlotFormat, log)
	if err != nil {
		return nil, err
	}
	log.Info("reports written", "dir", cfg.OutputDir, "files", len(paths))

	if cfg.ResultsDB != "" {
		if err := report.Store(cfg.ResultsDB, runID, cfg.Input, a.Flow, a.Screens, a.Hier); err != nil {
			return nil, err
		}
		log.Info("results stored", "db", cfg.ResultsDB)
	}

	return a, nil
}

// discard is a slog handler that drops every record.
type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }
