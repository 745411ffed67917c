// Package whisper provides an asr.Provider backed by a whisper.cpp server.
//
// It talks to a running whisper-server binary, which exposes a REST API at
// POST /inference accepting multipart WAV uploads. Batch transcription
// requests verbose output so per-segment timestamps are available for
// alignment; live chunk requests only need the text.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/meetmemo/meetmemo/pkg/provider/asr"
)

const (
	defaultLanguage = "auto"
	defaultTimeout  = 10 * time.Minute
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper server (e.g.
// "base.en", "small"). When empty the server uses whichever model it was
// started with.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language hint sent with each request. Defaults to
// "auto" (server-side detection).
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Batch transcription of long
// recordings can take minutes; the default is 10 minutes.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements asr.Provider against a whisper.cpp HTTP server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a Provider that connects to the whisper server at serverURL
// (e.g. "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads the audio file and returns the full verbose result
// including per-segment timestamps.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (*asr.Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer f.Close()

	body, err := p.infer(ctx, filepath.Base(audioPath), f, "verbose_json")
	if err != nil {
		return nil, err
	}

	var result asr.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("whisper: parse response: %w", err)
	}
	return &result, nil
}

// TranscribeChunk transcribes an in-memory WAV clip, returning only the text.
func (p *Provider) TranscribeChunk(ctx context.Context, wav []byte) (string, error) {
	body, err := p.infer(ctx, "chunk.wav", bytes.NewReader(wav), "json")
	if err != nil {
		return "", err
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("whisper: parse response: %w", err)
	}
	return result.Text, nil
}

// infer POSTs the audio to the /inference endpoint as multipart/form-data.
func (p *Provider) infer(ctx context.Context, filename string, audio io.Reader, responseFormat string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, fmt.Errorf("whisper: write audio data: %w", err)
	}

	if err := mw.WriteField("response_format", responseFormat); err != nil {
		return nil, fmt.Errorf("whisper: write response_format field: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return nil, fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return nil, fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, data)
	}
	return data, nil
}
