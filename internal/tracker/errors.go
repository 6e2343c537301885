package tracker

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/blevlabs/TuningTracker/internal/weaviate"
)

// Error kinds. Every error returned by a Tracker matches exactly one of these
// with errors.Is, and still wraps the underlying cause.
var (
	ErrConnection = errors.New("connection error")
	ErrSchema     = errors.New("schema error")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrQuery      = errors.New("query error")
	ErrIO         = errors.New("io error")
)

// opError prefixes cause with the operation and tags it with kind.
func opError(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, cause)
}

// classify picks the error kind for a failed backend call.
// A 404 maps to notFound. Other 4xx responses, GraphQL errors and names
// refused before sending map to rejected. Either is skipped when nil.
// Everything else is a connection error.
func classify(err, notFound, rejected error) error {
	var gqlErr weaviate.GraphQLErrors
	if (errors.As(err, &gqlErr) || errors.Is(err, weaviate.ErrInvalidName)) && rejected != nil {
		return rejected
	}

	status := weaviate.StatusCode(err)
	switch {
	case status == http.StatusNotFound && notFound != nil:
		return notFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrConnection
	case status >= 400 && status < 500 && rejected != nil:
		return rejected
	default:
		return ErrConnection
	}
}
