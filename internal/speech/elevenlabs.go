// Package speech converts text to narrated audio with ElevenLabs.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.elevenlabs.io"

// Options configures the ElevenLabs voice used for narration.
type Options struct {
	APIURL       string
	APIKey       string
	VoiceID      string
	ModelID      string
	OutputFormat string
}

type textToSpeechRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// StatusError is a non-200 answer from the synthesis API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("speech synthesis returned status %d: %s", e.Status, e.Message)
}

// ElevenLabs is a text-to-speech client bound to a single voice profile.
type ElevenLabs struct {
	opts       Options
	httpClient *http.Client
}

// NewElevenLabs validates the options and creates a client.
func NewElevenLabs(opts Options) (*ElevenLabs, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY must be set")
	}
	if opts.VoiceID == "" || opts.ModelID == "" || opts.OutputFormat == "" {
		return nil, fmt.Errorf("elevenlabs voice, model and output format must be set")
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")

	return &ElevenLabs{
		opts:       opts,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Synthesize returns the MP3 rendition of text.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req, err := e.newRequest(ctx, text)
	if err != nil {
		return nil, err
	}

	res, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send synthesis request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &StatusError{Status: res.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}

func (e *ElevenLabs) newRequest(ctx context.Context, text string) (*http.Request, error) {
	payload, err := json.Marshal(textToSpeechRequest{Text: text, ModelID: e.opts.ModelID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		e.opts.APIURL, url.PathEscape(e.opts.VoiceID), url.QueryEscape(e.opts.OutputFormat))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.opts.APIKey)

	return req, nil
}
