package validator

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RaikyD/orders-etl-service/internal/domain"
)

const (
	ReasonMissingOrderID      = "missing_order_id"
	ReasonInvalidAmount       = "invalid_amount"
	ReasonInvalidDate         = "invalid_date"
	ReasonMissingCustomerName = "missing_customer_name"
	ReasonInvalidStatus       = "invalid_status"
)

// Date formats seen in channel exports, tried in order.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

var acceptedStatuses = map[string]bool{
	"pending":   true,
	"paid":      true,
	"shipped":   true,
	"cancelled": true,
	"refunded":  true,
}

// Classify decides whether a raw row is a well-formed order. It is a pure
// function: the same row always yields the same outcome, which is what makes
// redelivery-driven reprocessing safe. Rules run in a fixed order and the
// first failure alone becomes the rejection reason. CreatedAt is left zero;
// the sink writer owns record timestamps.
func Classify(row domain.RawRow) domain.Outcome {
	get := func(key string) string { return strings.TrimSpace(row.Fields[key]) }

	reject := func(reason string) domain.Outcome {
		return domain.Outcome{Rejected: &domain.RejectedOrder{
			OrderID:      get("order_id"),
			Source:       row.Source,
			OrderDate:    get("order_date"),
			CustomerID:   get("customer_id"),
			CustomerName: get("customer_name"),
			TotalAmount:  get("total_amount"),
			Status:       get("status"),
			Reason:       reason,
		}}
	}

	orderID := get("order_id")
	if orderID == "" {
		return reject(ReasonMissingOrderID)
	}

	amount, err := decimal.NewFromString(get("total_amount"))
	if err != nil || amount.IsNegative() {
		return reject(ReasonInvalidAmount)
	}

	var orderDate *time.Time
	if raw := get("order_date"); raw != "" {
		parsed, ok := parseDate(raw)
		if !ok {
			return reject(ReasonInvalidDate)
		}
		orderDate = &parsed
	}

	customerName := get("customer_name")
	if customerName == "" {
		return reject(ReasonMissingCustomerName)
	}

	status := strings.ToLower(get("status"))
	if !acceptedStatuses[status] {
		return reject(ReasonInvalidStatus)
	}

	var customerID *string
	if v := get("customer_id"); v != "" {
		customerID = &v
	}

	return domain.Outcome{Clean: &domain.CleanOrder{
		OrderID:      orderID,
		Source:       row.Source,
		OrderDate:    orderDate,
		CustomerID:   customerID,
		CustomerName: customerName,
		TotalAmount:  amount,
		Status:       status,
	}}
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
