package expenses

import (
	"fmt"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

// ErrNotFound is returned when an expense id does not resolve.
var ErrNotFound = fmt.Errorf("expense %w", httpx.ErrNotFound)
