// Package report renders the analysis results as CSV files, fixed-width
// text tables, a JSON file of effect sizes and forest plots.
//
// Every table is built once as a Table of named columns, and is then
// written either as CSV or as text.  Missing values are written as NA.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/brunomontezano/covidpsy/statmodel"
)

// Table is a titled table of named columns.  Each column is a []string,
// []float64 or []int, and all columns have the same length.
type Table struct {
	Title string

	// Top holds name/value pairs shown above a text table.
	Top []string

	// Msg holds notes shown below a text table.
	Msg []string

	Names []string
	Cols  []interface{}
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	if len(t.Cols) == 0 {
		return 0
	}
	switch c := t.Cols[0].(type) {
	case []string:
		return len(c)
	case []float64:
		return len(c)
	case []int:
		return len(c)
	default:
		panic(fmt.Sprintf("NumRows: unsupported column type %T\n", c))
	}
}

func (t *Table) add(name string, col interface{}) {
	t.Names = append(t.Names, name)
	t.Cols = append(t.Cols, col)
}

// Col returns the named column.
func (t *Table) Col(name string) (interface{}, bool) {
	for j, na := range t.Names {
		if na == name {
			return t.Cols[j], true
		}
	}
	return nil, false
}

// cell formats one value for a CSV file.
func cell(col interface{}, i int) string {
	switch c := col.(type) {
	case []string:
		return c[i]
	case []float64:
		if math.IsNaN(c[i]) || math.IsInf(c[i], 0) {
			return "NA"
		}
		return strconv.FormatFloat(c[i], 'g', 8, 64)
	case []int:
		return strconv.Itoa(c[i])
	default:
		panic(fmt.Sprintf("cell: unsupported column type %T\n", c))
	}
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names); err != nil {
		return err
	}

	n := t.NumRows()
	rec := make([]string, len(t.Cols))
	for i := 0; i < n; i++ {
		for j, c := range t.Cols {
			rec[j] = cell(c, i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// String returns the table as fixed-width text.
func (t *Table) String() string {

	st := &statmodel.SummaryTable{
		Title:    t.Title,
		ColNames: t.Names,
		Cols:     t.Cols,
		Top:      append([]string(nil), t.Top...),
		Msg:      t.Msg,
	}

	for _, c := range t.Cols {
		switch c.(type) {
		case []string:
			st.ColFmt = append(st.ColFmt, statmodel.StringFmt)
		case []float64:
			st.ColFmt = append(st.ColFmt, statmodel.FloatFmt)
		case []int:
			st.ColFmt = append(st.ColFmt, statmodel.IntFmt)
		default:
			panic(fmt.Sprintf("String: unsupported column type %T\n", c))
		}
	}

	return st.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
