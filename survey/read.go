package survey

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kshedden/datareader"
)

// chunkSize is the number of records read per call from a Stata or SAS file.
const chunkSize = 10000

// missingTokens are the CSV cell values treated as missing.
var missingTokens = map[string]bool{
	"":   true,
	"NA": true,
	".":  true,
}

// Read reads a raw survey file.  The format is determined by the file
// extension: .dta (Stata, value labels are inserted as text),
// .sas7bdat (SAS) or .csv.
func Read(path string) (*RawTable, error) {

	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("survey: %w", err)
	}
	defer fid.Close()

	var rt *RawTable
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".dta":
		rt, err = readStata(fid)
	case ".sas7bdat":
		rt, err = readSAS(fid)
	case ".csv":
		rt, err = ReadCSV(fid)
	default:
		return nil, fmt.Errorf("survey: unsupported file type '%s'", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("survey: reading %s: %w", path, err)
	}

	return rt, nil
}

func readStata(r io.ReadSeeker) (*RawTable, error) {

	rdr, err := datareader.NewStataReader(r)
	if err != nil {
		return nil, err
	}
	rdr.InsertCategoryLabels = true

	return readChunks(rdr)
}

func readSAS(r io.ReadSeeker) (*RawTable, error) {

	rdr, err := datareader.NewSAS7BDATReader(r)
	if err != nil {
		return nil, err
	}
	rdr.TrimStrings = true

	return readChunks(rdr)
}

// chunkReader reads consecutive records from a Stata or SAS file.
type chunkReader interface {
	Read(int) ([]*datareader.Series, error)
}

// readChunks reads all records and converts the series to columns.
func readChunks(rdr chunkReader) (*RawTable, error) {

	var cols []*Column
	for {
		chunk, err := rdr.Read(chunkSize)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}

		if cols == nil {
			cols = make([]*Column, len(chunk))
		}
		if len(chunk) != len(cols) {
			return nil, fmt.Errorf("chunk has %d variables, expected %d", len(chunk), len(cols))
		}

		for j, s := range chunk {
			c, err := seriesColumn(s)
			if err != nil {
				return nil, err
			}
			cols[j] = appendColumn(cols[j], c)
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	return NewRawTable(cols)
}

// appendColumn appends the values of b to a, which may be nil.
func appendColumn(a, b *Column) *Column {

	if a == nil {
		return b
	}
	a.Num = append(a.Num, b.Num...)
	a.Str = append(a.Str, b.Str...)
	a.Missing = append(a.Missing, b.Missing...)

	return a
}

// seriesColumn converts a datareader series to a column.
func seriesColumn(s *datareader.Series) (*Column, error) {

	miss := s.Missing()

	var x []float64
	switch v := s.Data().(type) {
	case []string:
		y := make([]string, len(v))
		copy(y, v)
		c := NewText(s.Name, y)
		for i := range miss {
			if miss != nil && miss[i] {
				c.Missing[i] = true
				c.Str[i] = ""
			}
		}
		return c, nil
	case []time.Time:
		y := make([]string, len(v))
		for i, u := range v {
			if miss == nil || !miss[i] {
				y[i] = u.Format("2006-01-02")
			}
		}
		return NewText(s.Name, y), nil
	case []float64:
		x = make([]float64, len(v))
		copy(x, v)
	case []float32:
		x = make([]float64, len(v))
		for i, u := range v {
			x[i] = float64(u)
		}
	case []int64:
		x = make([]float64, len(v))
		for i, u := range v {
			x[i] = float64(u)
		}
	case []int32:
		x = make([]float64, len(v))
		for i, u := range v {
			x[i] = float64(u)
		}
	case []int16:
		x = make([]float64, len(v))
		for i, u := range v {
			x[i] = float64(u)
		}
	case []int8:
		x = make([]float64, len(v))
		for i, u := range v {
			x[i] = float64(u)
		}
	default:
		return nil, fmt.Errorf("variable '%s' has unsupported type %T", s.Name, v)
	}

	for i := range x {
		if miss != nil && miss[i] {
			x[i] = math.NaN()
		}
	}

	return NewNumeric(s.Name, x), nil
}

// ReadCSV reads comma-separated records with a header row.  A column is
// numeric if every non-missing cell parses as a number, otherwise it
// is text.  Empty cells, NA and . are missing.
func ReadCSV(r io.Reader) (*RawTable, error) {

	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	raw := make([][]string, len(header))
	for {
		rec, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for j := range header {
			raw[j] = append(raw[j], strings.TrimSpace(rec[j]))
		}
	}

	cols := make([]*Column, len(header))
	for j, na := range header {
		cols[j] = inferColumn(strings.TrimSpace(na), raw[j])
	}

	return NewRawTable(cols)
}

// inferColumn builds a numeric column if all non-missing cells are
// numbers, and a text column otherwise.
func inferColumn(name string, cells []string) *Column {

	x := make([]float64, len(cells))
	numeric := true
	for i, s := range cells {
		if missingTokens[s] {
			x[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			break
		}
		x[i] = v
	}

	if numeric {
		return NewNumeric(name, x)
	}

	y := make([]string, len(cells))
	for i, s := range cells {
		if !missingTokens[s] {
			y[i] = s
		}
	}

	return NewText(name, y)
}

// WriteCSV writes the table with a header row.  Missing values are
// written as empty cells.
func (rt *RawTable) WriteCSV(w io.Writer) error {

	wtr := csv.NewWriter(w)
	if err := wtr.Write(rt.Names()); err != nil {
		return err
	}

	labels := make([][]string, len(rt.cols))
	for j, c := range rt.cols {
		labels[j] = c.Labels()
	}

	rec := make([]string, len(rt.cols))
	for i := 0; i < rt.nrow; i++ {
		for j := range rt.cols {
			rec[j] = labels[j][i]
		}
		if err := wtr.Write(rec); err != nil {
			return err
		}
	}

	wtr.Flush()
	return wtr.Error()
}
