package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by collaborators when the entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTimeout marks a collaborator call that ran past its deadline.
	ErrTimeout = errors.New("collaborator timeout")

	// ErrDecodeTimeout marks an image decode that ran past its deadline.
	ErrDecodeTimeout = errors.New("decode timeout")

	// ErrUpstream marks a non-timeout failure of a remote service.
	ErrUpstream = errors.New("upstream failure")
)

// DecodeReason is why a barcode could not be read from an image.
type DecodeReason string

const (
	DecodeSourceNotFound    DecodeReason = "source_not_found"
	DecodeNoCodeDetected    DecodeReason = "no_code_detected"
	DecodeNoDigitsInPayload DecodeReason = "no_digits_in_payload"
)

// DecodeError is the typed failure of the barcode image decoder.
type DecodeError struct {
	Reason DecodeReason
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("decode: %s", e.Reason)
	}
	return fmt.Sprintf("decode: %s: %s", e.Reason, e.Detail)
}

// DecodeFailure builds a *DecodeError.
func DecodeFailure(reason DecodeReason, detail string) error {
	return &DecodeError{Reason: reason, Detail: detail}
}

// DecodeReasonOf extracts the reason of a decode failure, if err is one.
func DecodeReasonOf(err error) (DecodeReason, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}
