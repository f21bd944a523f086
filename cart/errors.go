package cart

import (
	"errors"
	"net/http"

	"gofalre.io/storefront/models/enum"
)

var ErrLineNotFound = errors.New("cart line not found")

// statusCoder is satisfied by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// Classify maps an error from the backend to the store's error taxonomy.
// Only the status code is inspected, so any transport can plug in.
func Classify(err error) enum.ErrorKind {
	if err == nil {
		return enum.ErrorKindNone
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return enum.ErrorKindNotFoundOrUnauthenticated
		}
	}
	return enum.ErrorKindTransportFailure
}
