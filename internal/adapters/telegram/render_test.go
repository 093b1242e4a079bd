package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestRenderProductFound(t *testing.T) {
	size := "200 мл"
	reply := Render(&domain.Response{
		Kind: domain.ResponseProductFound,
		Product: &domain.ProductNutrition{
			Barcode: "4601234567890",
			Name:    "Молоко <3,2%>",
			Per100g: domain.Macros{Kcal: fptr(60), Protein: fptr(3), Fat: fptr(3.2)},
			Serving: domain.ServingMacros{Size: &size, Macros: domain.Macros{Kcal: fptr(120)}},
		},
	})

	assert.Contains(t, reply.Text, "<b>Молоко &lt;3,2%&gt;</b>")
	assert.Contains(t, reply.Text, "Ккал: 60; Б: 3; Ж: 3.2; У: —")
	assert.Contains(t, reply.Text, "Размер порции: 200 мл")

	kb, ok := reply.Markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, domain.ButtonRecordGrams, *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, domain.ButtonRecordServings, *kb.InlineKeyboard[1][0].CallbackData)
}

func TestRenderReadyToConfirm(t *testing.T) {
	reply := Render(&domain.Response{Kind: domain.ResponseReadyToConfirm, Unit: domain.UnitServings, Amount: 0.5})

	assert.Contains(t, reply.Text, "<b>0.5 порций</b>")
	kb, ok := reply.Markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, domain.ButtonTrack, *kb.InlineKeyboard[0][0].CallbackData)
}

func TestRenderTrackedTotals(t *testing.T) {
	reply := Render(&domain.Response{
		Kind: domain.ResponseTracked,
		Tracked: &domain.TrackResult{
			Name:  "Кефир",
			Daily: domain.DailyTotals{Date: "2024-05-01", Kcal: 1800, Protein: 90, Fat: 60, Carbs: 200},
		},
	})

	assert.Contains(t, reply.Text, "Записал: <b>Кефир</b>")
	assert.Contains(t, reply.Text, "Ккал: <b>1800</b>")
	assert.Contains(t, reply.Text, "Белки: <b>90.0</b>")
	assert.Contains(t, reply.Text, "Углеводы: <b>200.0</b>")
	assert.Equal(t, "Записано ✅", reply.CallbackText)
	_, ok := reply.Markup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, ok)
}

func TestRenderSummaryVariants(t *testing.T) {
	name := "Ann"
	today := &domain.DailyTotals{Date: "2024-05-01", Kcal: 500}

	tests := []struct {
		name string
		resp *domain.Response
		want string
	}{
		{"me without data", &domain.Response{Kind: domain.ResponseDailySummary}, "Пока нет данных на сегодня"},
		{"me with data", &domain.Response{Kind: domain.ResponseDailySummary, Summary: &domain.DailySummary{Today: today}}, "Твоя статистика на сегодня"},
		{"start new user", &domain.Response{Kind: domain.ResponseDailySummary, Welcome: true}, "Я бот для учёта БЖУ"},
		{"start no records", &domain.Response{Kind: domain.ResponseDailySummary, Welcome: true, Summary: &domain.DailySummary{Profile: domain.UserProfile{FirstName: &name}}}, "Привет, <b>Ann</b>"},
		{"start returning", &domain.Response{Kind: domain.ResponseDailySummary, Welcome: true, Summary: &domain.DailySummary{Profile: domain.UserProfile{FirstName: &name}, Today: today}}, "С возвращением, <b>Ann</b>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Render(tt.resp).Text, tt.want)
		})
	}
}

func TestRenderEveryKindHasText(t *testing.T) {
	kinds := []domain.ResponseKind{
		domain.ResponseProductFound,
		domain.ResponseUnitPrompt,
		domain.ResponseAmountPrompt,
		domain.ResponseValidationError,
		domain.ResponseReadyToConfirm,
		domain.ResponseTracked,
		domain.ResponseNotUnderstood,
		domain.ResponseSessionLost,
		domain.ResponseProductNotFound,
		domain.ResponseDecodeFailed,
		domain.ResponseTransientFailure,
		domain.ResponseInternalFailure,
		domain.ResponseDailySummary,
	}

	for _, k := range kinds {
		assert.NotEmpty(t, Render(&domain.Response{Kind: k}).Text, string(k))
	}
}

func TestRenderDecodeFailureReasons(t *testing.T) {
	noDigits := Render(&domain.Response{Kind: domain.ResponseDecodeFailed, DecodeReason: domain.DecodeNoDigitsInPayload})
	assert.Contains(t, noDigits.Text, "нет цифр")

	source := Render(&domain.Response{Kind: domain.ResponseDecodeFailed, DecodeReason: domain.DecodeSourceNotFound})
	assert.Contains(t, source.Text, "открыть изображение")
}
