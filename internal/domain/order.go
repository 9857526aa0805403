package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source is the sales channel a row came from.
type Source string

const (
	SourceOnline  Source = "online"
	SourceOffline Source = "offline"
)

func ParseSource(s string) (Source, bool) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceOnline:
		return SourceOnline, true
	case SourceOffline:
		return SourceOffline, true
	}
	return "", false
}

// Sink names one of the two terminal stores.
type Sink string

const (
	SinkClean Sink = "clean"
	SinkError Sink = "error"
)

// RawRow is one parsed, unvalidated CSV record. Sequence is assigned at parse
// time and only breaks ties within a single upload.
type RawRow struct {
	Fields   map[string]string
	Source   Source
	Sequence int
}

// IngestionMessage is the queue payload, immutable once published.
// UploadID traces rows back to one upload call; it is not a dedup key.
type IngestionMessage struct {
	Row      map[string]string `json:"row"`
	Source   Source            `json:"source"`
	UploadID string            `json:"upload_id"`
	Sequence int               `json:"sequence"`
}

// CleanOrder is a validated, normalized order. (OrderID, Source) is the
// natural key and is unique across both sinks.
type CleanOrder struct {
	OrderID      string
	Source       Source
	OrderDate    *time.Time
	CustomerID   *string
	CustomerName string
	TotalAmount  decimal.Decimal
	Status       string
	CreatedAt    time.Time
}

// RejectedOrder keeps the raw field text so a broken row can be diagnosed.
type RejectedOrder struct {
	OrderID      string
	Source       Source
	OrderDate    string
	CustomerID   string
	CustomerName string
	TotalAmount  string
	Status       string
	Reason       string
	CreatedAt    time.Time
}

// Outcome is the classification result: exactly one of Clean or Rejected
// is non-nil, never both, never neither.
type Outcome struct {
	Clean    *CleanOrder
	Rejected *RejectedOrder
}

// Key returns the natural key of whichever record the outcome holds.
func (o Outcome) Key() (string, Source) {
	if o.Clean != nil {
		return o.Clean.OrderID, o.Clean.Source
	}
	return o.Rejected.OrderID, o.Rejected.Source
}
