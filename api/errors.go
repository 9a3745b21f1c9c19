package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ruteri/qkd-transfer-backend/interfaces"
)

// ErrorKind is the machine-readable error class in error responses.
type ErrorKind string

const (
	KindInvalidRequest          ErrorKind = "InvalidRequest"
	KindInvalidTargetBits       ErrorKind = "InvalidTargetBits"
	KindInvalidKeyLength        ErrorKind = "InvalidKeyLength"
	KindInvalidIVLength         ErrorKind = "InvalidIVLength"
	KindInvalidPadding          ErrorKind = "InvalidPadding"
	KindInvalidEncoding         ErrorKind = "InvalidEncoding"
	KindPayloadTooLarge         ErrorKind = "PayloadTooLarge"
	KindNotFound                ErrorKind = "NotFound"
	KindInsufficientKeyMaterial ErrorKind = "InsufficientKeyMaterial"
	KindBackendUnavailable      ErrorKind = "BackendUnavailable"
	KindTimeout                 ErrorKind = "Timeout"
	KindInternal                ErrorKind = "Internal"
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Kind is reported to the client. Empty means derive it from Err.
	Kind ErrorKind

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// BadRequest wraps a malformed-input error.
func BadRequest(format string, args ...any) *RequestError {
	return &RequestError{
		StatusCode: http.StatusBadRequest,
		Kind:       KindInvalidRequest,
		Err:        fmt.Errorf(format, args...),
	}
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	OK    bool      `json:"ok"`
	Kind  ErrorKind `json:"kind"`
	Error string    `json:"error"`
}

// Classify maps an error to its HTTP status and kind.
func Classify(err error) (int, ErrorKind) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Kind != "" {
		return reqErr.StatusCode, reqErr.Kind
	}

	status, kind := classifySentinel(err)
	if reqErr != nil && kind == KindInternal {
		return reqErr.StatusCode, KindInvalidRequest
	}
	return status, kind
}

func classifySentinel(err error) (int, ErrorKind) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, interfaces.ErrInvalidTargetBits):
		return http.StatusBadRequest, KindInvalidTargetBits
	case errors.Is(err, interfaces.ErrInvalidKeyLength):
		return http.StatusBadRequest, KindInvalidKeyLength
	case errors.Is(err, interfaces.ErrInvalidIVLength):
		return http.StatusBadRequest, KindInvalidIVLength
	case errors.Is(err, interfaces.ErrInvalidPadding):
		return http.StatusBadRequest, KindInvalidPadding
	case errors.Is(err, interfaces.ErrInvalidEncoding):
		return http.StatusBadRequest, KindInvalidEncoding
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, KindPayloadTooLarge
	case errors.Is(err, interfaces.ErrTransferNotFound), errors.Is(err, interfaces.ErrContentNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, interfaces.ErrInsufficientKeyMaterial):
		return http.StatusServiceUnavailable, KindInsufficientKeyMaterial
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, KindBackendUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, KindTimeout
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// WriteError writes {"ok":false,"kind":...,"error":...} with the classified
// status and returns the kind. Internal errors are reported without detail.
func WriteError(w http.ResponseWriter, err error) ErrorKind {
	status, kind := Classify(err)

	msg := err.Error()
	if kind == KindInternal {
		msg = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{OK: false, Kind: kind, Error: msg})
	return kind
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// ClientError is returned by the API clients for non-2xx responses.
type ClientError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
}

func (e *ClientError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d (%s): %s", e.StatusCode, e.Kind, e.Message)
}

// DecodeError builds a ClientError from an error response body.
func DecodeError(statusCode int, body []byte) error {
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Kind == "" {
		return &ClientError{StatusCode: statusCode, Message: string(body)}
	}
	return &ClientError{StatusCode: statusCode, Kind: resp.Kind, Message: resp.Error}
}
