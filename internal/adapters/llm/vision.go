package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"google.golang.org/genai"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// generateFunc is the single Gemini call the decoder needs.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// VisionDecoder asks Gemini on Vertex AI to read a barcode that the local
// scanner could not find. It implements domain.BarcodeDecoder.
type VisionDecoder struct {
	generate  generateFunc
	modelName string

	// Timeout bounds one model call; zero means the caller's deadline only.
	Timeout time.Duration
}

// NewVisionDecoder creates a Vertex AI (Gemini) backed decoder.
func NewVisionDecoder(ctx context.Context, projectID, location, modelName string) (*VisionDecoder, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("project and location are required for the vision decoder")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VisionDecoder{
		generate:  client.Models.GenerateContent,
		modelName: modelName,
	}, nil
}

// Decode sends the image with a strict prompt and parses the digits back.
func (v *VisionDecoder) Decode(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.DecodeFailure(domain.DecodeSourceNotFound, err.Error())
	}

	mimeType := http.DetectContentType(data)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(visionUserPrompt),
		}, genai.RoleUser),
	}

	temp := float32(0)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(visionSystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(64),
	}

	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}

	res, err := v.generate(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w: %w", domain.ErrUpstream, err)
	}

	return parseVisionReply(res.Text())
}
