package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

func replyWith(text string) generateFunc {
	return func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: genai.NewContentFromText(text, genai.RoleModel)},
			},
		}, nil
	}
}

func photo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff, 0xe0}, 0o600))
	return path
}

func TestVisionDecoderReadsDigits(t *testing.T) {
	var sentMime string
	v := &VisionDecoder{modelName: "test-model", generate: func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		assert.Equal(t, "test-model", model)
		require.Len(t, contents, 1)
		require.Len(t, contents[0].Parts, 2)
		sentMime = contents[0].Parts[0].InlineData.MIMEType
		return replyWith("4601 2345 67890")(ctx, model, contents, cfg)
	}}

	code, err := v.Decode(context.Background(), photo(t))

	require.NoError(t, err)
	assert.Equal(t, "4601234567890", code)
	assert.Equal(t, "image/jpeg", sentMime)
}

func TestVisionDecoderReplies(t *testing.T) {
	tests := []struct {
		reply  string
		reason domain.DecodeReason
	}{
		{"NONE", domain.DecodeNoCodeDetected},
		{"  none\n", domain.DecodeNoCodeDetected},
		{"", domain.DecodeNoCodeDetected},
		{"I cannot tell", domain.DecodeNoDigitsInPayload},
	}

	for _, tt := range tests {
		v := &VisionDecoder{modelName: "m", generate: replyWith(tt.reply)}
		_, err := v.Decode(context.Background(), photo(t))

		reason, ok := domain.DecodeReasonOf(err)
		require.True(t, ok, tt.reply)
		assert.Equal(t, tt.reason, reason, tt.reply)
	}
}

func TestVisionDecoderUpstreamError(t *testing.T) {
	v := &VisionDecoder{modelName: "m", generate: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("quota exceeded")
	}}

	_, err := v.Decode(context.Background(), photo(t))

	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestVisionDecoderMissingFile(t *testing.T) {
	v := &VisionDecoder{modelName: "m", generate: replyWith("12345678")}

	_, err := v.Decode(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))

	reason, ok := domain.DecodeReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.DecodeSourceNotFound, reason)
}
