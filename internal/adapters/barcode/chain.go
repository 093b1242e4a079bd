package barcode

import (
	"context"

	"github.com/PabloGalante/kbju-bot/internal/domain"
	"github.com/PabloGalante/kbju-bot/internal/observability"
)

// Chain asks Fallback only when Primary saw no code at all. A failing
// fallback never hides the primary error.
type Chain struct {
	Primary  domain.BarcodeDecoder
	Fallback domain.BarcodeDecoder
}

func (c Chain) Decode(ctx context.Context, path string) (string, error) {
	code, err := c.Primary.Decode(ctx, path)
	if err == nil || c.Fallback == nil {
		return code, err
	}

	if reason, ok := domain.DecodeReasonOf(err); !ok || reason != domain.DecodeNoCodeDetected {
		return "", err
	}

	alt, altErr := c.Fallback.Decode(ctx, path)
	if altErr != nil {
		observability.LoggerFromContext(ctx).Info("fallback decoder found nothing", "error", altErr)
		return "", err
	}
	return alt, nil
}
