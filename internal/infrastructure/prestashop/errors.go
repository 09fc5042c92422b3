package prestashop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

// ErrWebService is matched by every WebServiceError
var ErrWebService = errors.New("prestashop: web service error")

// WebServiceError is a 4xx answer other than 404, carrying the messages
// PrestaShop returned in its <errors> node.
type WebServiceError struct {
	StatusCode int
	Messages   []string
}

func (e *WebServiceError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("prestashop: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("prestashop: HTTP %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Is makes errors.Is(err, ErrWebService) true
func (e *WebServiceError) Is(target error) bool {
	return target == ErrWebService
}

// mapError translates a transport error or an HTTP status into the
// connector error taxonomy. It returns nil for 2xx/3xx statuses.
func mapError(err error, status int, body []byte, resource string, id int64) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return connector.NewRetryableJobError("PrestaShop is unreachable", 0, err)
	}
	switch {
	case status == http.StatusNotFound:
		return &connector.IDMissingInBackend{Resource: resource, ID: id}
	case status >= 500:
		return connector.NewRetryableJobError(fmt.Sprintf("PrestaShop server error (HTTP %d)", status), 0, nil)
	case status >= 400:
		return &WebServiceError{StatusCode: status, Messages: errorMessages(body)}
	}
	return nil
}

// errorMessages extracts <errors><error><message> texts of an error document
func errorMessages(body []byte) []string {
	if len(body) == 0 {
		return nil
	}
	name, content, err := Decode(body)
	if err != nil || name != "errors" {
		return nil
	}
	var messages []string
	for _, e := range content.List("error") {
		if msg := e.String("message"); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages
}
