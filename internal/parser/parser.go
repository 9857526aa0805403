package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/RaikyD/orders-etl-service/internal/domain"
)

// Channel exports do not agree on column names; map the known aliases onto
// the canonical schema.
var columnAliases = map[string]string{
	"order_id":      "order_id",
	"id":            "order_id",
	"orderid":       "order_id",
	"order_date":    "order_date",
	"date":          "order_date",
	"customer_id":   "customer_id",
	"cust_id":       "customer_id",
	"customer_name": "customer_name",
	"name":          "customer_name",
	"total_amount":  "total_amount",
	"amount":        "total_amount",
	"total":         "total_amount",
	"status":        "status",
	"order_status":  "status",
}

var requiredColumns = []string{"order_id", "customer_name", "total_amount", "status"}

// RowReader streams RawRows out of one uploaded CSV. The header is checked
// up front: a header missing a required column fails the whole upload with
// ErrMalformedInput before a single row is read. Row-level breakage never
// aborts the stream; the row is emitted as-is and the validator decides.
type RowReader struct {
	r      *csv.Reader
	header []string
	source domain.Source
	seq    int
}

func NewRowReader(rd io.Reader, source domain.Source) (*RowReader, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rec, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read csv header", domain.ErrMalformedInput)
	}

	header := make([]string, len(rec))
	seen := make(map[string]bool, len(rec))
	for i, col := range rec {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		name := strings.ToLower(strings.TrimSpace(col))
		if canon, ok := columnAliases[name]; ok {
			name = canon
		}
		header[i] = name
		seen[name] = true
	}
	for _, col := range requiredColumns {
		if !seen[col] {
			return nil, fmt.Errorf("%w: csv header missing column %q", domain.ErrMalformedInput, col)
		}
	}

	return &RowReader{r: cr, header: header, source: source}, nil
}

// Next returns the following row, or io.EOF once the stream is drained.
// Blank lines are skipped. A row with the wrong column count still comes
// through: extra cells are dropped, missing cells stay absent.
func (rr *RowReader) Next() (domain.RawRow, error) {
	for {
		rec, err := rr.r.Read()
		if err == io.EOF {
			return domain.RawRow{}, io.EOF
		}
		if err != nil {
			// unparsable line: emit it with no fields, the validator rejects it
			rr.seq++
			return domain.RawRow{Fields: map[string]string{}, Source: rr.source, Sequence: rr.seq}, nil
		}

		blank := true
		for _, v := range rec {
			if strings.TrimSpace(v) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}

		fields := make(map[string]string, len(rr.header))
		for i, col := range rr.header {
			if i < len(rec) {
				fields[col] = rec[i]
			}
		}
		rr.seq++
		return domain.RawRow{Fields: fields, Source: rr.source, Sequence: rr.seq}, nil
	}
}
