package crm

import (
	"fmt"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when a customer id does not resolve.
	ErrNotFound = fmt.Errorf("customer %w", httpx.ErrNotFound)
	// ErrCustomerInUse blocks deleting a customer that orders still reference.
	ErrCustomerInUse = fmt.Errorf("customer has sales orders: %w", httpx.ErrConflict)
)
