package llm

import (
	"strings"

	"github.com/PabloGalante/kbju-bot/internal/adapters/barcode"
	"github.com/PabloGalante/kbju-bot/internal/domain"
)

const visionSystemPrompt = `
You read product barcodes from photos of food packaging.

Rules:
- Look for an EAN-13, EAN-8, UPC-A, UPC-E, Code 128, Code 39 or QR code.
- If the digits printed under the bars are readable, use them.
- Reply with the digits only, no spaces, no other words.
- If there is no barcode or you cannot read it with certainty, reply with NONE.
`

const visionUserPrompt = "Which barcode number is on this photo?"

const noneReply = "NONE"

var digitGroups = strings.NewReplacer(" ", "", "-", "")

// parseVisionReply turns the model's answer into a barcode. The model is
// told to answer NONE when it sees nothing.
func parseVisionReply(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, noneReply) {
		return "", domain.DecodeFailure(domain.DecodeNoCodeDetected, "vision model saw no code")
	}

	// models like to group digits the way they are printed
	code, ok := barcode.ExtractDigits(digitGroups.Replace(text))
	if !ok {
		return "", domain.DecodeFailure(domain.DecodeNoDigitsInPayload, "vision reply without digits")
	}
	return code, nil
}
