package handler

import (
	"errors"
	"net/http"

	"github.com/glizzus/opus2mp3/internal/transcode"
)

// UserError is an error type that is used to represent
// an error whose message can be returned to the client.
type UserError struct {
	Status  int
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)

const (
	processingFailedMessage = "Failed to process audio file"
	invalidBase64Message    = "Invalid base64 input"
	emptyInputMessage       = "opusBase64 must not be empty"
)

// ToUserError classifies a conversion error. Each kind of malformed input
// gets a fixed message; anything else is hidden behind a generic one.
func ToUserError(err error) *UserError {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &UserError{Status: http.StatusRequestEntityTooLarge, Message: "request body too large"}
	}

	if transcode.IsMalformedInput(err) {
		message := emptyInputMessage
		if transcode.KindOf(err) == transcode.KindMalformedEncoding {
			message = invalidBase64Message
		}
		return &UserError{Status: http.StatusBadRequest, Message: message}
	}

	return &UserError{Status: http.StatusInternalServerError, Message: processingFailedMessage}
}
