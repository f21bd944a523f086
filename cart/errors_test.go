package cart_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"gofalre.io/storefront/cart"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/transport"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want enum.ErrorKind
	}{
		{name: "nil", err: nil, want: enum.ErrorKindNone},
		{name: "401", err: &transport.StatusError{Status: http.StatusUnauthorized}, want: enum.ErrorKindNotFoundOrUnauthenticated},
		{name: "403", err: &transport.StatusError{Status: http.StatusForbidden}, want: enum.ErrorKindNotFoundOrUnauthenticated},
		{name: "404 wrapped", err: fmt.Errorf("fetch: %w", &transport.StatusError{Status: http.StatusNotFound}), want: enum.ErrorKindNotFoundOrUnauthenticated},
		{name: "500", err: &transport.StatusError{Status: http.StatusInternalServerError}, want: enum.ErrorKindTransportFailure},
		{name: "409", err: &transport.StatusError{Status: http.StatusConflict}, want: enum.ErrorKindTransportFailure},
		{name: "plain error", err: errors.New("dial tcp: refused"), want: enum.ErrorKindTransportFailure},
		{name: "deadline", err: context.DeadlineExceeded, want: enum.ErrorKindTransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cart.Classify(tt.err))
		})
	}
}
