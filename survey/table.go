// Package survey holds the raw survey records, as read from a Stata,
// SAS or CSV file, in a column-oriented table.
package survey

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Whitelist is the set of raw fields used by the analysis.
var Whitelist = []string{
	"loneliness_w1",
	"loneliness_w4",
	"sex_birth",
	"sexual_orientation",
	"skin_color",
	"birth_year",
	"education",
	"education_grouped",
	"household_income",
	"household_size",
	"employment_status",
	"social_distancing",
	"phq_total",
	"gad_total",
	"audit_class",
	"cannabis_freq",
	"ipaq_category",
	"ipaq_active",
	"sleep_quality",
	"marital_status",
	"friend_relationship",
	"family_relationship",
	"religion",
	"sampling_weight",
	"attrition_weight",
}

// ErrNoColumn is returned when a requested column is not in a table.
var ErrNoColumn = errors.New("survey: no such column")

// Kind is the storage type of a column.
type Kind uint8

// Numeric columns hold float64 values, Text columns hold labels.
const (
	Numeric Kind = iota
	Text
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Column is a named column of raw values with a missingness mask.
type Column struct {
	Name string
	Kind Kind

	// Num holds the values of a numeric column, NaN where missing.
	Num []float64

	// Str holds the values of a text column, empty where missing.
	Str []string

	// Missing[i] is true if value i is missing.
	Missing []bool
}

// NewNumeric returns a numeric column.  NaN values are missing.
func NewNumeric(name string, x []float64) *Column {
	miss := make([]bool, len(x))
	for i, v := range x {
		miss[i] = math.IsNaN(v)
	}
	return &Column{Name: name, Kind: Numeric, Num: x, Missing: miss}
}

// NewText returns a text column.  Empty strings are missing.
func NewText(name string, x []string) *Column {
	miss := make([]bool, len(x))
	for i, v := range x {
		miss[i] = strings.TrimSpace(v) == ""
	}
	return &Column{Name: name, Kind: Text, Str: x, Missing: miss}
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	return len(c.Missing)
}

// Floats returns the column values as numbers, NaN where missing.  A
// text column is parsed, and an error is returned if a non-missing
// value is not a number.
func (c *Column) Floats() ([]float64, error) {

	x := make([]float64, c.Len())
	for i := range x {
		if c.Missing[i] {
			x[i] = math.NaN()
			continue
		}
		if c.Kind == Numeric {
			x[i] = c.Num[i]
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Str[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("survey: column '%s' row %d: value %q is not numeric", c.Name, i, c.Str[i])
		}
		x[i] = v
	}

	return x, nil
}

// Labels returns the column values as text, empty where missing.
// Numbers are formatted in their shortest representation.
func (c *Column) Labels() []string {

	x := make([]string, c.Len())
	for i := range x {
		switch {
		case c.Missing[i]:
		case c.Kind == Text:
			x[i] = c.Str[i]
		default:
			x[i] = strconv.FormatFloat(c.Num[i], 'g', -1, 64)
		}
	}

	return x
}

// take returns a new column holding the values at the given rows.
func (c *Column) take(rows []int) *Column {

	nc := &Column{
		Name:    c.Name,
		Kind:    c.Kind,
		Missing: make([]bool, len(rows)),
	}
	if c.Kind == Numeric {
		nc.Num = make([]float64, len(rows))
	} else {
		nc.Str = make([]string, len(rows))
	}

	for j, i := range rows {
		nc.Missing[j] = c.Missing[i]
		if c.Kind == Numeric {
			nc.Num[j] = c.Num[i]
		} else {
			nc.Str[j] = c.Str[i]
		}
	}

	return nc
}

// RawTable is a collection of equal-length columns, one row per
// respondent.  A RawTable is not modified by any of its methods.
type RawTable struct {
	cols  []*Column
	index map[string]int
	nrow  int
}

// NewRawTable returns a table holding the given columns, which must
// have distinct names and equal lengths.
func NewRawTable(cols []*Column) (*RawTable, error) {

	rt := &RawTable{
		cols:  cols,
		index: make(map[string]int),
	}

	for j, c := range cols {
		if _, ok := rt.index[c.Name]; ok {
			return nil, fmt.Errorf("survey: duplicate column '%s'", c.Name)
		}
		rt.index[c.Name] = j
		if j == 0 {
			rt.nrow = c.Len()
		} else if c.Len() != rt.nrow {
			return nil, fmt.Errorf("survey: column '%s' has length %d, expected %d", c.Name, c.Len(), rt.nrow)
		}
	}

	return rt, nil
}

// NumRows returns the number of rows in the table.
func (rt *RawTable) NumRows() int {
	return rt.nrow
}

// Names returns the column names, in table order.
func (rt *RawTable) Names() []string {
	na := make([]string, len(rt.cols))
	for j, c := range rt.cols {
		na[j] = c.Name
	}
	return na
}

// Has returns true if the table has a column with the given name.
func (rt *RawTable) Has(name string) bool {
	_, ok := rt.index[name]
	return ok
}

// Column returns the named column.
func (rt *RawTable) Column(name string) (*Column, error) {
	j, ok := rt.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNoColumn, name)
	}
	return rt.cols[j], nil
}

// Select returns a table holding copies of the named columns, in the
// given order.
func (rt *RawTable) Select(names []string) (*RawTable, error) {

	rows := make([]int, rt.nrow)
	for i := range rows {
		rows[i] = i
	}

	var cols []*Column
	for _, na := range names {
		c, err := rt.Column(na)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.take(rows))
	}

	return NewRawTable(cols)
}

// Filter returns a table holding copies of the rows for which keep is
// true.
func (rt *RawTable) Filter(keep []bool) *RawTable {

	if len(keep) != rt.nrow {
		msg := fmt.Sprintf("Filter: mask has length %d, table has %d rows\n", len(keep), rt.nrow)
		panic(msg)
	}

	var rows []int
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}

	cols := make([]*Column, len(rt.cols))
	for j, c := range rt.cols {
		cols[j] = c.take(rows)
	}

	return &RawTable{
		cols:  cols,
		index: rt.index,
		nrow:  len(rows),
	}
}
