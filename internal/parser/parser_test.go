package parser

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RaikyD/orders-etl-service/internal/domain"
)

func readAll(t *testing.T, rr *RowReader) []domain.RawRow {
	t.Helper()
	var rows []domain.RawRow
	for {
		row, err := rr.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestRowReader_CanonicalHeader(t *testing.T) {
	csv := "order_id,order_date,customer_id,customer_name,total_amount,status\n" +
		"A1,2024-01-01,C9,Linh,100.50,paid\n" +
		"A2,,,Binh,50,pending\n"

	rr, err := NewRowReader(strings.NewReader(csv), domain.SourceOnline)
	require.NoError(t, err)

	rows := readAll(t, rr)
	require.Len(t, rows, 2)
	require.Equal(t, "A1", rows[0].Fields["order_id"])
	require.Equal(t, "Linh", rows[0].Fields["customer_name"])
	require.Equal(t, domain.SourceOnline, rows[0].Source)
	require.Equal(t, 1, rows[0].Sequence)
	require.Equal(t, 2, rows[1].Sequence)
}

func TestRowReader_AliasedColumns(t *testing.T) {
	csv := "id,date,cust_id,name,amount,order_status\n" +
		"A1,2024-01-01,C9,Linh,10,paid\n"

	rr, err := NewRowReader(strings.NewReader(csv), domain.SourceOffline)
	require.NoError(t, err)

	rows := readAll(t, rr)
	require.Len(t, rows, 1)
	require.Equal(t, "A1", rows[0].Fields["order_id"])
	require.Equal(t, "2024-01-01", rows[0].Fields["order_date"])
	require.Equal(t, "C9", rows[0].Fields["customer_id"])
	require.Equal(t, "Linh", rows[0].Fields["customer_name"])
	require.Equal(t, "10", rows[0].Fields["total_amount"])
	require.Equal(t, "paid", rows[0].Fields["status"])
}

func TestRowReader_BOMAndBlankLines(t *testing.T) {
	csv := "\ufefforder_id,customer_name,total_amount,status\n" +
		"A1,Linh,10,paid\n" +
		"\n" +
		",,,\n" +
		"\n"

	rr, err := NewRowReader(strings.NewReader(csv), domain.SourceOnline)
	require.NoError(t, err)

	rows := readAll(t, rr)
	require.Len(t, rows, 1)
	require.Equal(t, "A1", rows[0].Fields["order_id"])
}

func TestRowReader_HeaderMismatchFailsUpload(t *testing.T) {
	csv := "foo,bar\n1,2\n"

	_, err := NewRowReader(strings.NewReader(csv), domain.SourceOnline)
	require.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestRowReader_EmptyStreamFailsUpload(t *testing.T) {
	_, err := NewRowReader(strings.NewReader(""), domain.SourceOnline)
	require.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestRowReader_ShortRowStillEmitted(t *testing.T) {
	csv := "order_id,customer_name,total_amount,status\n" +
		"A1,Linh\n" +
		"A2,Binh,10,paid,extra\n"

	rr, err := NewRowReader(strings.NewReader(csv), domain.SourceOnline)
	require.NoError(t, err)

	rows := readAll(t, rr)
	require.Len(t, rows, 2)

	// missing cells stay absent; the validator owns the reject decision
	require.Equal(t, "A1", rows[0].Fields["order_id"])
	_, ok := rows[0].Fields["total_amount"]
	require.False(t, ok)

	// extra cells are dropped
	require.Equal(t, "paid", rows[1].Fields["status"])
}
