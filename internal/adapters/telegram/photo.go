package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// photoRef is a Telegram photo that is downloaded only when opened. The
// direct URL embeds the bot token, so it is never logged.
type photoRef struct {
	fileID   string
	uniqueID string
	api      botAPI
	client   *http.Client
}

func (p photoRef) Key() string {
	return p.uniqueID
}

func (p photoRef) Open(ctx context.Context) (io.ReadCloser, error) {
	url, err := p.api.GetFileDirectURL(p.fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve telegram file %s: %w", p.uniqueID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download telegram file %s: %w", p.uniqueID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download telegram file %s: status %d", p.uniqueID, resp.StatusCode)
	}

	return resp.Body, nil
}
