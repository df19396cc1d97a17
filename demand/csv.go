package demand

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/validation"
)

var (
	analyticsColumns = []string{"id", "prediction", "stock"}
	demandHeader     = []string{"id", "demand"}
)

// CSVDecoder reads ProductAnalytics rows. Column order comes from the header,
// which is matched case-insensitively after trimming.
type CSVDecoder struct {
	r     *csv.Reader
	index map[string]int
	line  int
}

// NewCSVDecoder reads the header from r and checks the required columns exist.
func NewCSVDecoder(r io.Reader) (*CSVDecoder, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.InvalidRecord(1, "missing header")
		}
		return nil, errors.InvalidRecord(1, "unreadable header").WithCause(err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range analyticsColumns {
		if _, ok := index[col]; !ok {
			return nil, errors.InvalidRecord(1, fmt.Sprintf("header is missing column %q", col))
		}
	}
	return &CSVDecoder{r: cr, index: index, line: 1}, nil
}

// Decode returns the next row, or io.EOF after the last one.
func (d *CSVDecoder) Decode() (ProductAnalytics, error) {
	rec, err := d.r.Read()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return ProductAnalytics{}, io.EOF
		}
		return ProductAnalytics{}, errors.InvalidRecord(d.line+1, "malformed row").WithCause(err)
	}
	d.line++

	var out ProductAnalytics
	fields := []struct {
		name string
		dst  *int64
	}{
		{"id", &out.ID},
		{"prediction", &out.Prediction},
		{"stock", &out.Stock},
	}
	for _, f := range fields {
		i := d.index[f.name]
		if i >= len(rec) {
			return ProductAnalytics{}, errors.InvalidRecord(d.line, fmt.Sprintf("missing %s", f.name))
		}
		v, err := strconv.ParseInt(strings.TrimSpace(rec[i]), 10, 64)
		if err != nil {
			return ProductAnalytics{}, errors.InvalidRecord(d.line, fmt.Sprintf("%s is not an integer", f.name)).WithCause(err)
		}
		*f.dst = v
	}
	if err := validation.ValidateRecord(out); err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return ProductAnalytics{}, appErr.WithDetail("line", d.line)
		}
		return ProductAnalytics{}, err
	}
	return out, nil
}

// CSVEncoder writes ProductDemand rows with an "id,demand" header.
type CSVEncoder struct {
	w           *csv.Writer
	wroteHeader bool
	row         [2]string
}

// NewCSVEncoder returns an encoder writing to w.
func NewCSVEncoder(w io.Writer) *CSVEncoder {
	return &CSVEncoder{w: csv.NewWriter(w)}
}

// Encode writes one row, preceded by the header on first use.
func (e *CSVEncoder) Encode(v ProductDemand) error {
	if err := e.header(); err != nil {
		return err
	}
	e.row[0] = strconv.FormatInt(v.ID, 10)
	e.row[1] = strconv.FormatInt(v.Demand, 10)
	return e.w.Write(e.row[:])
}

// Flush writes any buffered data, including the header if nothing was encoded.
func (e *CSVEncoder) Flush() error {
	if err := e.header(); err != nil {
		return err
	}
	e.w.Flush()
	return e.w.Error()
}

func (e *CSVEncoder) header() error {
	if e.wroteHeader {
		return nil
	}
	e.wroteHeader = true
	return e.w.Write(demandHeader)
}
