package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/brunomontezano/covidpsy/internal/config"
	"github.com/brunomontezano/covidpsy/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Run the analysis and write the reports",
	Long: `Run reads a Stata (.dta), SAS (.sas7bdat) or CSV survey file, builds the
incident loneliness cohort, and writes the weighted summaries, the
domain screenings, the hierarchical models and the forest plots to the
output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, lg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			cfg.Input = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		_, err = pipeline.Run(ctx, cfg, lg)
		return err
	},
}

func init() {
	d := config.Default()
	f := runCmd.Flags()
	f.String(config.FlagName("input"), d.Input, "survey file (.dta, .sas7bdat or .csv)")
	f.String(config.FlagName("output_dir"), d.OutputDir, "directory for the reports")
	f.Int(config.FlagName("reference_year"), d.ReferenceYear, "year used to compute age")
	f.Bool(config.FlagName("include_age_cubic"), d.IncludeAgeCubic, "include the cubic age term")
	f.Float64(config.FlagName("screen_threshold"), d.ScreenThreshold, "p-value to retain a predictor in screening")
	f.Float64(config.FlagName("entry_threshold"), d.EntryThreshold, "p-value to keep a predictor after its entry block")
	f.Float64(config.FlagName("report_alpha"), d.ReportAlpha, "significance level in the final block")
	f.Float64(config.FlagName("conf_level"), d.ConfLevel, "confidence level of the intervals")
	f.String(config.FlagName("ci_method"), d.CIMethod, "confidence intervals (wald or profile)")
	f.Int(config.FlagName("max_iter"), d.MaxIter, "maximum IRLS iterations")
	f.String(config.FlagName("plot_format"), d.PlotFormat, "forest plot format (png, svg or pdf)")
	f.String(config.FlagName("results_db"), d.ResultsDB, "optional SQLite database to append the results to")
}
