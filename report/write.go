package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brunomontezano/covidpsy/hier"
)

// PlotFormats are the supported forest plot file formats.
var PlotFormats = []string{"png", "svg", "pdf"}

// CheckPlotFormat returns an error for an unsupported plot format.
func CheckPlotFormat(f string) error {
	for _, x := range PlotFormats {
		if x == f {
			return nil
		}
	}
	return fmt.Errorf("report: unsupported plot format %q", f)
}

func create(path string, write func(w *bufio.Writer) error) error {

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes a table to dir/base.csv and returns the path.
func WriteCSV(dir, base string, t *Table) (string, error) {
	path := filepath.Join(dir, base+".csv")
	return path, create(path, func(w *bufio.Writer) error {
		return t.WriteCSV(w)
	})
}

// WriteText writes a table to dir/base.txt and returns the path.
func WriteText(dir, base string, t *Table) (string, error) {
	path := filepath.Join(dir, base+".txt")
	return path, create(path, func(w *bufio.Writer) error {
		_, err := w.WriteString(t.String())
		return err
	})
}

// WriteEffects writes the effect sizes to dir/effects.json and returns
// the path.
func WriteEffects(dir string, res *hier.Result) (string, error) {
	path := filepath.Join(dir, "effects.json")
	return path, create(path, func(w *bufio.Writer) error {
		return NewEffects(res).WriteJSON(w)
	})
}

// WriteForest writes the ranked and unsorted forest plots, and returns
// their paths.  ErrNoEffects is returned if the final block has no
// plottable terms.
func WriteForest(dir, format string, res *hier.Result) ([]string, error) {

	if err := CheckPlotFormat(format); err != nil {
		return nil, err
	}

	var paths []string
	for _, ranked := range []bool{true, false} {
		base, title := "forest_unsorted", "Risk ratios, final model"
		if ranked {
			base, title = "forest_ranked", "Risk ratios, final model, ranked"
		}
		fp, err := NewForestPlotter(res).Ranked(ranked).Title(title).Plot()
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, base+"."+format)
		if err := fp.Save(path); err != nil {
			return paths, fmt.Errorf("report: write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
