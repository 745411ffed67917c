// Package pyannote provides a diarize.Provider backed by a pyannote-based
// diarization HTTP service. The service accepts multipart WAV uploads at
// POST /diarize and returns ordered speaker turns as JSON.
package pyannote

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

	"github.com/meetmemo/meetmemo/pkg/provider/diarize"
)

const defaultTimeout = 10 * time.Minute

// Compile-time assertion that Provider implements diarize.Provider.
var _ diarize.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the diarization pipeline identifier forwarded to the
// service (e.g. "pyannote/speaker-diarization-3.1").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithToken sets the bearer token sent with each request. The service needs
// it to pull gated model weights.
func WithToken(token string) Option {
	return func(p *Provider) {
		p.token = token
	}
}

// WithTimeout sets the per-request HTTP timeout.
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

// Provider implements diarize.Provider against the diarization HTTP service.
type Provider struct {
	serverURL  string
	model      string
	token      string
	httpClient *http.Client
}

// New creates a Provider that connects to the diarization service at
// serverURL (e.g. "http://localhost:8001"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("pyannote: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Diarize uploads the audio file and returns the ordered speaker turns.
func (p *Provider) Diarize(ctx context.Context, audioPath string) (*diarize.Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("pyannote: open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("pyannote: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("pyannote: write audio data: %w", err)
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return nil, fmt.Errorf("pyannote: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("pyannote: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/diarize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("pyannote: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pyannote: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pyannote: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pyannote: server returned HTTP %d: %s", resp.StatusCode, data)
	}

	var result diarize.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("pyannote: parse response: %w", err)
	}
	return &result, nil
}
