package chat

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned when the upstream provider rejects the
// configured credentials. It is escalated to the gateway rather than masked
// by fallback content, since it means an operator has to fix the API key.
var ErrPermissionDenied = errors.New("permission denied: invalid or missing upstream API key")

// UnsupportedRoleError reports a chat message whose role is outside the
// accepted set. It is a caller-input error: no upstream call is made.
type UnsupportedRoleError struct {
	Role string
}

func (e *UnsupportedRoleError) Error() string {
	return fmt.Sprintf("unsupported role: %q", e.Role)
}
