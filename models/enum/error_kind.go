package enum

// ErrorKind classifies failures seen by the cart store.
type ErrorKind string

const (
	ErrorKindNone                      ErrorKind = ""
	ErrorKindAuthRequired              ErrorKind = "auth_required"                // 未登入，不是錯誤
	ErrorKindNotFoundOrUnauthenticated ErrorKind = "not_found_or_unauthenticated" // 視為空購物車
	ErrorKindTransportFailure          ErrorKind = "transport_failure"            // 回滾並提示
	ErrorKindValidationFailure         ErrorKind = "validation_failure"
)
