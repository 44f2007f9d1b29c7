package status

import "errors"

var (
	ErrNotAuthenticated = errors.New("auth: authentication required")
	ErrInvalidArgument  = errors.New("flow: invalid argument")
	ErrTicketNotFound   = errors.New("ticket: service not found")
	ErrBackendDown      = errors.New("storage: backend unavailable")
)
