package domain

// Macros is a macro quartet. Each value is optional on the remote side.
type Macros struct {
	Kcal    *float64 `json:"kcal"`
	Protein *float64 `json:"protein"`
	Fat     *float64 `json:"fat"`
	Carbs   *float64 `json:"carbs"`
}

// ServingMacros is the per-serving quartet plus an optional size label.
type ServingMacros struct {
	Size *string `json:"size"`
	Macros
}

// ProductNutrition is what the nutrition service knows about a barcode.
type ProductNutrition struct {
	Barcode string        `json:"barcode"`
	Name    string        `json:"name"`
	Per100g Macros        `json:"per_100g"`
	Serving ServingMacros `json:"serving"`
}

// DailyTotals is the user's accumulated totals for one date, computed remotely.
type DailyTotals struct {
	Date    string  `json:"date"`
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carbs   float64 `json:"carbs"`
}

// UserInfo identifies the chat user towards the tracking service.
type UserInfo struct {
	ID           UserID `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// TrackRequest asks the service to record an amount of a product.
// Exactly one of Grams and Servings is set.
type TrackRequest struct {
	Barcode  string
	User     UserInfo
	Grams    *float64
	Servings *float64
}

// TrackResult echoes the product and carries totals after the entry is applied.
type TrackResult struct {
	Barcode     string        `json:"barcode"`
	Name        string        `json:"name"`
	AmountGrams *float64      `json:"amount_grams"`
	Servings    *float64      `json:"servings"`
	Per100g     Macros        `json:"per_100g"`
	Serving     ServingMacros `json:"serving"`
	Daily       DailyTotals   `json:"daily"`
}

// UserProfile is the remote profile of a tracked user.
type UserProfile struct {
	ID         int64   `json:"id"`
	TelegramID int64   `json:"telegram_id"`
	Username   *string `json:"username"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
}

// DailySummary is the profile plus today's totals, if any were tracked.
type DailySummary struct {
	Profile UserProfile  `json:"profile"`
	Today   *DailyTotals `json:"today"`
}
