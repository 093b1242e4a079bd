package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PabloGalante/kbju-bot/internal/app/classifier"
	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// Reply is a rendered response: HTML text, an optional keyboard and the
// toast shown when the response answers a button press.
type Reply struct {
	Text         string
	Markup       any
	CallbackText string
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(classifier.SummaryMenuLabel)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func recordChoiceKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📥 Записать в граммах", domain.ButtonRecordGrams)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📥 Записать в порциях", domain.ButtonRecordServings)),
	)
}

func trackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Трек", domain.ButtonTrack)),
	)
}

// Render turns a response into the message sent back to the chat.
func Render(resp *domain.Response) Reply {
	switch resp.Kind {
	case domain.ResponseProductFound:
		return Reply{Text: formatProduct(resp.Product), Markup: recordChoiceKeyboard()}

	case domain.ResponseUnitPrompt:
		return Reply{
			Text:   "Сначала выбери, как записать продукт: в граммах или в порциях.",
			Markup: recordChoiceKeyboard(),
		}

	case domain.ResponseAmountPrompt:
		if resp.Unit == domain.UnitServings {
			return Reply{Text: "Сколько <b>порций</b> вы съели?\nПример: <code>1</code> или <code>0.5</code>"}
		}
		return Reply{Text: "Сколько <b>грамм</b> вы съели?\nПример: <code>120</code>"}

	case domain.ResponseValidationError:
		return Reply{Text: "Нужно ввести положительное число.\nНапример: <code>100</code> или <code>0.5</code>"}

	case domain.ResponseReadyToConfirm:
		return Reply{
			Text: fmt.Sprintf(
				"Ок, записать <b>%s %s</b>.\nНажми кнопку <b>«Трек»</b>, чтобы сохранить приём пищи.",
				formatAmount(resp.Amount), unitLabel(resp.Unit),
			),
			Markup: trackKeyboard(),
		}

	case domain.ResponseTracked:
		return Reply{
			Text:         formatTracked(resp.Tracked),
			Markup:       mainMenuKeyboard(),
			CallbackText: "Записано ✅",
		}

	case domain.ResponseSessionLost:
		return Reply{
			Text:   "Данные для трека потерялись. Попробуйте ещё раз отправить штрихкод.",
			Markup: mainMenuKeyboard(),
		}

	case domain.ResponseProductNotFound:
		return Reply{
			Text: fmt.Sprintf(
				"Не удалось найти продукт по штрихкоду <code>%s</code>. 😔\nПопробуй другой или проверь, правильно ли введён код.",
				html.EscapeString(resp.Barcode),
			),
			Markup: mainMenuKeyboard(),
		}

	case domain.ResponseDecodeFailed:
		return Reply{Text: "❌ Не удалось извлечь штрихкод из фото.\n" + decodeReasonText(resp.DecodeReason)}

	case domain.ResponseTransientFailure:
		if resp.Reason == "decode_timeout" {
			return Reply{Text: "Фото обрабатывается слишком долго. Попробуйте ещё раз или отправьте штрихкод текстом."}
		}
		return Reply{Text: "Сервис КБЖУ сейчас недоступен. Попробуйте ещё раз чуть позже."}

	case domain.ResponseInternalFailure:
		return Reply{
			Text:   "Что-то пошло не так, попробуйте ещё раз отправить штрихкод.",
			Markup: mainMenuKeyboard(),
		}

	case domain.ResponseDailySummary:
		return Reply{Text: formatSummary(resp), Markup: mainMenuKeyboard()}

	default:
		return Reply{
			Text:   "Не понял 🤔\nОтправь штрихкод продукта текстом или фото со сканом.",
			Markup: mainMenuKeyboard(),
		}
	}
}

func formatProduct(p *domain.ProductNutrition) string {
	if p == nil {
		return "Продукт найден."
	}

	size := "—"
	if p.Serving.Size != nil && *p.Serving.Size != "" {
		size = html.EscapeString(*p.Serving.Size)
	}

	lines := []string{
		"<b>" + html.EscapeString(p.Name) + "</b>",
		"Штрихкод: <code>" + html.EscapeString(p.Barcode) + "</code>",
		"",
		"<b>На 100 г:</b>",
		formatMacros(p.Per100g),
		"",
		"<b>За порцию:</b>",
		"Размер порции: " + size,
		formatMacros(p.Serving.Macros),
	}
	return strings.Join(lines, "\n")
}

func formatMacros(m domain.Macros) string {
	return fmt.Sprintf("Ккал: %s; Б: %s; Ж: %s; У: %s",
		optional(m.Kcal), optional(m.Protein), optional(m.Fat), optional(m.Carbs))
}

func formatTracked(r *domain.TrackResult) string {
	if r == nil {
		return "Записано."
	}
	return "Записал: <b>" + html.EscapeString(r.Name) + "</b>\n\nТекущая дневная статистика:\n" + formatDaily(r.Daily)
}

func formatDaily(d domain.DailyTotals) string {
	return fmt.Sprintf(
		"Дата: <b>%s</b>\nКкал: <b>%.0f</b>\nБелки: <b>%.1f</b>\nЖиры: <b>%.1f</b>\nУглеводы: <b>%.1f</b>",
		html.EscapeString(d.Date), d.Kcal, d.Protein, d.Fat, d.Carbs,
	)
}

func formatSummary(resp *domain.Response) string {
	s := resp.Summary

	if !resp.Welcome {
		if s == nil || s.Today == nil {
			return "Пока нет данных на сегодня. Отправь штрихкод продукта, чтобы добавить приём пищи."
		}
		return "Твоя статистика на сегодня:\n" + formatDaily(*s.Today)
	}

	if s == nil {
		return "Привет! 👋\n\n" +
			"Я бот для учёта БЖУ по штрихкодам.\n" +
			"Отправь мне штрихкод продукта (как текст или фото со сканом), и я попробую найти его в базе.\n\n" +
			"Профиль будет создан при первом треке продукта."
	}

	name := "друг"
	if s.Profile.FirstName != nil && *s.Profile.FirstName != "" {
		name = html.EscapeString(*s.Profile.FirstName)
	}
	if s.Today == nil {
		return "Привет, <b>" + name + "</b>!\n\nНа сегодня ещё нет записей. Скинь штрихкод, чтобы начать."
	}
	return "С возвращением, <b>" + name + "</b>!\n\nТвоя статистика на сегодня:\n" + formatDaily(*s.Today)
}

func decodeReasonText(reason domain.DecodeReason) string {
	switch reason {
	case domain.DecodeSourceNotFound:
		return "Не получилось открыть изображение."
	case domain.DecodeNoDigitsInPayload:
		return "В найденном коде нет цифр штрихкода."
	default:
		return "На фото не найден штрихкод или QR-код."
	}
}

func unitLabel(u domain.Unit) string {
	if u == domain.UnitServings {
		return "порций"
	}
	return "грамм"
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return "—"
	}
	return formatAmount(*v)
}
