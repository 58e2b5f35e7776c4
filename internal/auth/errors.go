package auth

import (
	"fmt"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
	// ErrNotSignedIn is returned for business routes without a session user.
	ErrNotSignedIn = fmt.Errorf("sign in required: %w", httpx.ErrUnauthorized)
	// ErrUserNotFound is returned by repositories for unknown emails.
	ErrUserNotFound = fmt.Errorf("user %w", httpx.ErrNotFound)
	// ErrEmailTaken is returned when registering an email twice.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", httpx.ErrDuplicate)
)
