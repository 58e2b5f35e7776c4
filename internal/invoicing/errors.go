package invoicing

import (
	"errors"
	"fmt"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when an invoice id does not resolve.
	ErrNotFound = fmt.Errorf("invoice %w", httpx.ErrNotFound)
	// ErrOrderNotFound is returned when the referenced sales order does not exist.
	ErrOrderNotFound = fmt.Errorf("sales order %w", httpx.ErrNotFound)
	// ErrInvoiceExists is the warning raised when an order already has an invoice.
	ErrInvoiceExists = fmt.Errorf("order already has an invoice: %w", httpx.ErrConflict)
	// ErrOrderLinked rejects a manual invoice for an order that is already linked.
	ErrOrderLinked = fmt.Errorf("order is linked to another invoice: %w", httpx.ErrConflict)
	// ErrBusy is returned when another request holds the generation lock for an order.
	ErrBusy = fmt.Errorf("invoice generation in progress: %w", httpx.ErrConflict)
	// ErrNumberTaken signals an invoice number collision.
	ErrNumberTaken = fmt.Errorf("invoice number %w", httpx.ErrDuplicate)
	// ErrLockNotObtained is returned by a Locker when the key is held elsewhere.
	ErrLockNotObtained = errors.New("invoicing: lock not obtained")
)
