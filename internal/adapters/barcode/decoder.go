// Package barcode reads numeric product codes from photos of QR and 1-D
// barcodes.
package barcode

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"regexp"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// ExtractDigits returns the first maximal run of ASCII digits in payload.
func ExtractDigits(payload string) (string, bool) {
	m := digitRun.FindString(payload)
	return m, m != ""
}

// DefaultMaxPixels bounds the decoded bitmap. Phone photos stay well
// under it.
const DefaultMaxPixels = 40_000_000

// Decoder is the synchronous, CPU-bound decode. It is safe for concurrent
// use: readers are created per call.
type Decoder struct {
	// MaxPixels rejects larger images before they are decoded. Zero
	// disables the check.
	MaxPixels int64

	hints map[gozxing.DecodeHintType]interface{}
}

func NewDecoder() *Decoder {
	return &Decoder{
		MaxPixels: DefaultMaxPixels,
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// readers fixes the symbology order. The first reader that finds a code
// wins, so a photo with both a QR and an EAN yields the QR payload.
func readers() []gozxing.Reader {
	return []gozxing.Reader{
		qrcode.NewQRCodeReader(),
		oned.NewEAN13Reader(),
		oned.NewEAN8Reader(),
		oned.NewUPCAReader(),
		oned.NewUPCEReader(),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
	}
}

// DecodeFile opens the image at path and returns the first digit run of
// the first code found. Failures are *domain.DecodeError.
func (d *Decoder) DecodeFile(path string) (string, error) {
	if path == "" {
		return "", domain.DecodeFailure(domain.DecodeSourceNotFound, "empty path")
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.DecodeFailure(domain.DecodeSourceNotFound, path)
		}
		return "", domain.DecodeFailure(domain.DecodeSourceNotFound, err.Error())
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return "", domain.DecodeFailure(domain.DecodeSourceNotFound, fmt.Sprintf("not an image: %v", err))
	}
	if px := int64(cfg.Width) * int64(cfg.Height); d.MaxPixels > 0 && px > d.MaxPixels {
		return "", domain.DecodeFailure(domain.DecodeSourceNotFound,
			fmt.Sprintf("image too large: %dx%d", cfg.Width, cfg.Height))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", domain.DecodeFailure(domain.DecodeSourceNotFound, err.Error())
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return "", domain.DecodeFailure(domain.DecodeSourceNotFound, fmt.Sprintf("not an image: %v", err))
	}

	return d.DecodeImage(img)
}

// DecodeImage runs the readers over an already decoded image.
func (d *Decoder) DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", domain.DecodeFailure(domain.DecodeNoCodeDetected, err.Error())
	}

	for _, r := range readers() {
		res, err := r.Decode(bmp, d.hints)
		if err != nil || res == nil {
			continue
		}

		payload := res.GetText()
		code, ok := ExtractDigits(payload)
		if !ok {
			return "", domain.DecodeFailure(domain.DecodeNoDigitsInPayload, fmt.Sprintf("payload %q", payload))
		}
		return code, nil
	}

	return "", domain.DecodeFailure(domain.DecodeNoCodeDetected, "")
}
