package sales

import (
	"fmt"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when an order id does not resolve.
	ErrNotFound = fmt.Errorf("sales order %w", httpx.ErrNotFound)
	// ErrOrderInvoiced blocks deleting or re-assigning an order that has an invoice.
	ErrOrderInvoiced = fmt.Errorf("sales order has an invoice: %w", httpx.ErrConflict)
)
