package translate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tolk/internal/domain"
)

// Client submits a finalized payload to the hub's translation endpoint. The
// caller never applies the response locally; the confirmed utterance reaches
// every participant, the producer included, through the room channel echo.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Submit(ctx context.Context, payload domain.Payload, sourceLang, targetLang, roomID string) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: missing hub base URL", ErrNotConfigured)
	}
	if payload.Empty() {
		return ErrNoAudio
	}

	body, contentType, err := encodeSubmission(payload, sourceLang, targetLang)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/rooms/" + url.PathEscape(roomID) + "/utterances"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: hub reported the capability unavailable", ErrNotConfigured)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: hub returned %s: %s", ErrUpstream, resp.Status, strings.TrimSpace(string(detail)))
	}
}

func encodeSubmission(payload domain.Payload, sourceLang, targetLang string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "capture.raw")
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if _, err := part.Write(payload.Data); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	fields := map[string]string{
		"mediaType":      payload.MediaType,
		"sourceLanguage": sourceLang,
		"targetLanguage": targetLang,
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return body, writer.FormDataContentType(), nil
}
