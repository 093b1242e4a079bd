package domain

import "context"

// NutritionClient is the remote KBJU service: lookup, tracking and the
// daily summary. Misses are reported as ErrNotFound.
type NutritionClient interface {
	LookupByBarcode(ctx context.Context, barcode string) (*ProductNutrition, error)
	TrackByBarcode(ctx context.Context, req TrackRequest) (*TrackResult, error)
	GetDailySummary(ctx context.Context, userID UserID) (*DailySummary, error)
}

// ConversationStore holds one ConversationState per user.
type ConversationStore interface {
	// Get returns the user's state, or a fresh Idle state if none exists.
	Get(ctx context.Context, userID UserID) (*ConversationState, error)
	Set(ctx context.Context, state *ConversationState) error
	Clear(ctx context.Context, userID UserID) error
}

// BarcodeDecoder turns an image file into a numeric barcode. Failures are
// *DecodeError or ErrDecodeTimeout.
type BarcodeDecoder interface {
	Decode(ctx context.Context, path string) (string, error)
}

// ImageSpooler copies a photo to a local temporary file. release removes
// the file and is safe to call on every exit path.
type ImageSpooler interface {
	Spool(ctx context.Context, ref ImageRef) (path string, release func(), err error)
}
