package middlewares

// gin context keys shared by the middlewares and handlers
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
	CtxUser      = "auth.user"
	CtxEmail     = "auth.email"
	CtxRole      = "auth.role"
)
