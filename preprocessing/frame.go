package preprocessing

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Frame は列名付きの生の表データ。セルは文字列のまま保持し、
// 数値への変換は ColumnTransformer が行う。
type Frame struct {
	Columns []string
	Rows    [][]string
}

// NewFrame creates a Frame and checks that every row has one cell per column.
func NewFrame(columns []string, rows [][]string) (*Frame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.NewDimensionError("NewFrame", len(columns), len(row), i)
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// ReadCSV reads a header line followed by records.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("ReadCSV", "csv has no header")
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return NewFrame(header, records[1:])
}

// WriteCSV writes the header and all rows.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	if err := cw.WriteAll(f.Rows); err != nil {
		return errors.Wrap(err, "write csv rows")
	}
	return nil
}

// ReadCSVFile reads the CSV file at path.
func ReadCSVFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		// *os.PathError already names the operation and the path
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	frame, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return frame, nil
}

// WriteCSVFile writes the frame to path, creating missing parent
// directories. An existing file is replaced.
func (f *Frame) WriteCSVFile(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return f.WriteCSV(out)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column name, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Select returns the cells of the named columns, row by row.
func (f *Frame) Select(names ...string) ([][]string, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = f.Index(n)
		if idx[i] < 0 {
			return nil, errors.NewValidationError("column", "not present in data", n)
		}
	}
	out := make([][]string, len(f.Rows))
	for r, row := range f.Rows {
		cells := make([]string, len(idx))
		for i, j := range idx {
			cells[i] = row[j]
		}
		out[r] = cells
	}
	return out, nil
}

// Subset returns a frame holding the rows at the given indices.
func (f *Frame) Subset(indices []int) *Frame {
	rows := make([][]string, len(indices))
	for i, idx := range indices {
		rows[i] = f.Rows[idx]
	}
	return &Frame{Columns: f.Columns, Rows: rows}
}

// Float parses the named column. Missing cells become NaN.
func (f *Frame) Float(name string) ([]float64, error) {
	cells, err := f.Select(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := ParseCell(c[0])
		if err != nil {
			return nil, errors.Wrapf(err, "column %s row %d", name, i)
		}
		out[i] = v
	}
	return out, nil
}

// naTokens are the cells read as missing. Matching is exact and
// case-sensitive, so a category such as "none" stays a category.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(cell string) bool {
	_, ok := naTokens[cell]
	return ok
}

// ParseCell converts a raw cell to float64, mapping missing cells to NaN.
func ParseCell(cell string) (float64, error) {
	if IsMissing(cell) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, errors.NewValueError("ParseCell", "not a number: "+strconv.Quote(cell))
	}
	return v, nil
}
