package domain

import (
	"context"
	"io"
)

// ImageRef points at a photo attached to an inbound event. Opening it may
// hit the network; the caller closes the returned reader.
type ImageRef interface {
	Key() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Event is one raw inbound message. At most one of Photo, ButtonData and
// Text is meaningful; the classifier decides which.
type Event struct {
	UserID     UserID
	User       UserInfo
	Text       string
	HasText    bool
	Photo      ImageRef
	ButtonData string
}

// Known button tokens.
const (
	ButtonRecordGrams    = "record:grams"
	ButtonRecordServings = "record:servings"
	ButtonTrack          = "record:track"
)

// InputKind tags a classified event.
type InputKind int

const (
	InputUnrecognized InputKind = iota
	InputPhoto
	InputUnitChoice
	InputTrackConfirmation
	InputSummaryRequest
	InputBarcodeText
	InputFreeformAmount
)

func (k InputKind) String() string {
	switch k {
	case InputPhoto:
		return "photo"
	case InputUnitChoice:
		return "unit_choice"
	case InputTrackConfirmation:
		return "track_confirmation"
	case InputSummaryRequest:
		return "summary_request"
	case InputBarcodeText:
		return "barcode_text"
	case InputFreeformAmount:
		return "freeform_amount"
	default:
		return "unrecognized"
	}
}

// Input is the classified form of an Event. Only the field matching Kind
// is set.
type Input struct {
	Kind    InputKind
	Barcode string
	Image   ImageRef
	Unit    Unit
	// Raw is the untrimmed amount text, or the command of a summary request.
	Raw string
}
