package middleware

import "github.com/oksasatya/library-catalog/pkg/response"

// Gin context keys set by the middleware in this package.
const (
	CtxAccountIDKey = "accountID"
	CtxRoleKey      = "role"
	CtxSessionIDKey = "sid"
	CtxRequestIDKey = response.RequestIDKey
	CtxRealIPKey    = "real_ip"
)
