// Package classifier maps raw inbound events to a tagged domain.Input.
// It is pure: no state is read or written.
package classifier

import (
	"strings"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// MinBarcodeLength is the shortest digit string treated as a barcode.
const MinBarcodeLength = 8

const (
	CommandStart = "/start"
	CommandMe    = "/me"
)

// SummaryMenuLabel is the reply keyboard button that asks for today's totals.
const SummaryMenuLabel = "📊 Мои БЖУ сегодня"

// Classify applies the fixed priority order, first match wins:
// photo, known button token, summary request, barcode-shaped text, any
// other text, unrecognized.
func Classify(ev domain.Event) domain.Input {
	if ev.Photo != nil {
		return domain.Input{Kind: domain.InputPhoto, Image: ev.Photo}
	}

	if ev.ButtonData != "" {
		switch ev.ButtonData {
		case domain.ButtonRecordGrams:
			return domain.Input{Kind: domain.InputUnitChoice, Unit: domain.UnitGrams}
		case domain.ButtonRecordServings:
			return domain.Input{Kind: domain.InputUnitChoice, Unit: domain.UnitServings}
		case domain.ButtonTrack:
			return domain.Input{Kind: domain.InputTrackConfirmation}
		}
		return domain.Input{Kind: domain.InputUnrecognized}
	}

	if !ev.HasText {
		return domain.Input{Kind: domain.InputUnrecognized}
	}

	text := strings.TrimSpace(ev.Text)
	if cmd, ok := summaryCommand(text); ok {
		return domain.Input{Kind: domain.InputSummaryRequest, Raw: cmd}
	}
	if IsBarcode(text) {
		return domain.Input{Kind: domain.InputBarcodeText, Barcode: text}
	}
	return domain.Input{Kind: domain.InputFreeformAmount, Raw: ev.Text}
}

// IsBarcode reports whether s, already trimmed, is all ASCII digits and
// at least MinBarcodeLength long.
func IsBarcode(s string) bool {
	if len(s) < MinBarcodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// summaryCommand returns the command that asked for the summary; the menu
// label counts as /me.
func summaryCommand(text string) (string, bool) {
	if text == SummaryMenuLabel {
		return CommandMe, true
	}
	cmd, _, _ := strings.Cut(text, " ")
	// telegram appends @botname in groups
	cmd, _, _ = strings.Cut(cmd, "@")
	if cmd == CommandStart || cmd == CommandMe {
		return cmd, true
	}
	return "", false
}
