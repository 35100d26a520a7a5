// Package response writes and reads the node API JSON envelope.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ledger-wallet/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Envelope wraps every node API reply. Successful replies carry Data, failed
// ones carry ErrorCode and Message.
type Envelope struct {
	Data      json.RawMessage `json:"data,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Message   string          `json:"message,omitempty"`
	RequestID string          `json:"request_id"`
	Timestamp string          `json:"timestamp"`
}

// Failed reports whether the envelope carries an error code.
func (e Envelope) Failed() bool {
	return e.ErrorCode != ""
}

// Err rebuilds the taxonomy error the node reported, using status for the
// HTTP mapping.
func (e Envelope) Err(status int) error {
	if !e.Failed() {
		return nil
	}
	return apperror.New(e.ErrorCode, e.Message, status)
}

// DecodeData unmarshals the data payload into out.
func (e Envelope) DecodeData(out interface{}) error {
	if len(e.Data) == 0 {
		return errors.New("response carries no data")
	}
	return json.Unmarshal(e.Data, out)
}

// Decode parses a raw envelope. An empty body yields a zero envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if len(raw) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, data)
}

// Error maps err onto the envelope. Errors outside the taxonomy become
// SYS_001 and their text is not exposed.
func Error(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "SYS_001", "Internal server error"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, code, message = appErr.HTTPStatus, appErr.Code, appErr.Message
	}
	c.JSON(status, Envelope{
		ErrorCode: code,
		Message:   message,
		RequestID: requestID(c),
		Timestamp: stamp(),
	})
}

func write(c *gin.Context, status int, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		Error(c, apperror.InternalError(err))
		return
	}
	c.JSON(status, Envelope{Data: raw, RequestID: requestID(c), Timestamp: stamp()})
}

func requestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return uuid.New().String()
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
