package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserKey   = "auth.user"
	ctxUserIDKey = "auth.userID"
	ctxRoleKey   = "auth.role"
)
