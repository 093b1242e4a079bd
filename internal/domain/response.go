package domain

// ResponseKind is the outbound answer category. Rendering to text is the
// transport's job.
type ResponseKind string

const (
	ResponseProductFound     ResponseKind = "product_found"
	ResponseUnitPrompt       ResponseKind = "unit_prompt"
	ResponseAmountPrompt     ResponseKind = "amount_prompt"
	ResponseValidationError  ResponseKind = "validation_error"
	ResponseReadyToConfirm   ResponseKind = "ready_to_confirm"
	ResponseTracked          ResponseKind = "tracked"
	ResponseNotUnderstood    ResponseKind = "not_understood"
	ResponseSessionLost      ResponseKind = "session_lost"
	ResponseProductNotFound  ResponseKind = "product_not_found"
	ResponseDecodeFailed     ResponseKind = "decode_failed"
	ResponseTransientFailure ResponseKind = "transient_failure"
	ResponseInternalFailure  ResponseKind = "internal_failure"
	ResponseDailySummary     ResponseKind = "daily_summary"
)

// Response describes what to tell the user after one event.
type Response struct {
	Kind ResponseKind `json:"kind"`

	Barcode string            `json:"barcode,omitempty"`
	Product *ProductNutrition `json:"product,omitempty"`
	Unit    Unit              `json:"unit,omitempty"`
	Amount  float64           `json:"amount,omitempty"`
	Tracked *TrackResult      `json:"tracked,omitempty"`
	Summary *DailySummary     `json:"summary,omitempty"`
	// Welcome marks a summary asked for by /start.
	Welcome bool `json:"welcome,omitempty"`

	// DecodeReason is set for ResponseDecodeFailed.
	DecodeReason DecodeReason `json:"decode_reason,omitempty"`
	// Reason is a short machine-readable cause for failures.
	Reason string `json:"reason,omitempty"`
}
