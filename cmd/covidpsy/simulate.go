package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunomontezano/covidpsy/synth"
)

var (
	simN         int
	simSeed      uint64
	simPerfect   bool
	simOut       string
	simAttrition float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Write a synthetic survey as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {

		_, lg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if simN <= 0 {
			return fmt.Errorf("simulate: size=%d must be positive", simN)
		}

		opts := synth.DefaultOptions()
		opts.Seed = simSeed
		opts.PerfectPredictor = simPerfect
		opts.AttritionRate = simAttrition
		rt := synth.Generate(simN, opts)

		w := os.Stdout
		if simOut != "" && simOut != "-" {
			f, err := os.Create(simOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := rt.WriteCSV(w); err != nil {
			return err
		}

		lg.Info("synthetic survey written", "n", simN, "seed", simSeed, "out", simOut)
		return nil
	},
}

func init() {
	d := synth.DefaultOptions()
	f := simulateCmd.Flags()
	f.IntVarP(&simN, "size", "n", 2000, "number of respondents")
	f.Uint64Var(&simSeed, "seed", d.Seed, "random seed")
	f.Float64Var(&simAttrition, "attrition", d.AttritionRate, "share of respondents missing at follow-up")
	f.BoolVar(&simPerfect, "perfect-predictor", false, "make social distancing match the outcome")
	f.StringVarP(&simOut, "out", "o", "-", "output file, - for stdout")
}
