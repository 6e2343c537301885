package weaviate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
)

// ErrInvalidName marks a class or property name that is not a GraphQL name.
var ErrInvalidName = errors.New("invalid name")

var namePattern = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// CheckName returns an error wrapping ErrInvalidName unless name can appear
// in a GraphQL query.
func CheckName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidName, name, namePattern)
	}
	return nil
}

// StatusCode returns the HTTP status carried by err, or 0 if err did not come
// from a server response.
func StatusCode(err error) int {
	var clientErr *fault.WeaviateClientError
	if errors.As(err, &clientErr) && clientErr.IsUnexpectedStatusCode {
		return clientErr.StatusCode
	}
	return 0
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// GraphQLErrors is returned when a query is answered with errors.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		msgs = append(msgs, ge.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}
