package httpapi

import (
	"io"
	"net/http"
	"testing"
)

// seedCompleted writes "0123456789abcdef0123" (20 bytes) as the audio file.
const audioBody = "0123456789abcdef0123"

func (e *testEnv) getAudio(t *testing.T, rangeHeader string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/v1/jobs/job-1/audio", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_StreamAudio(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.seedCompleted(t, "job-1")

	tests := []struct {
		name        string
		rangeHeader string
		wantStatus  int
		wantBody    string
		wantRange   string
	}{
		{
			name:       "no range",
			wantStatus: http.StatusOK,
			wantBody:   audioBody,
		},
		{
			name:        "explicit range",
			rangeHeader: "bytes=0-9",
			wantStatus:  http.StatusPartialContent,
			wantBody:    "0123456789",
			wantRange:   "bytes 0-9/20",
		},
		{
			name:        "suffix range",
			rangeHeader: "bytes=-5",
			wantStatus:  http.StatusPartialContent,
			wantBody:    "f0123",
			wantRange:   "bytes 15-19/20",
		},
		{
			name:        "open range",
			rangeHeader: "bytes=10-",
			wantStatus:  http.StatusPartialContent,
			wantBody:    "abcdef0123",
			wantRange:   "bytes 10-19/20",
		},
		{
			name:        "end clamped to file size",
			rangeHeader: "bytes=5-100",
			wantStatus:  http.StatusPartialContent,
			wantBody:    "56789abcdef0123",
			wantRange:   "bytes 5-19/20",
		},
		{
			name:        "inverted range degrades to full",
			rangeHeader: "bytes=9-3",
			wantStatus:  http.StatusOK,
			wantBody:    audioBody,
		},
		{
			name:        "malformed range degrades to full",
			rangeHeader: "bytes=abc",
			wantStatus:  http.StatusOK,
			wantBody:    audioBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.getAudio(t, tt.rangeHeader)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if got := resp.Header.Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
			if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
				t.Errorf("Accept-Ranges = %q", got)
			}
			if got := resp.Header.Get("Content-Type"); got != "audio/wav" {
				t.Errorf("Content-Type = %q", got)
			}
		})
	}

	t.Run("missing job", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/jobs/nope/audio", nil)
		resp, err := env.ts.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
		wantOK    bool
	}{
		{"empty header", "", 100, 0, 0, false},
		{"explicit", "bytes=0-49", 100, 0, 49, true},
		{"open", "bytes=50-", 100, 50, 99, true},
		{"suffix", "bytes=-10", 100, 90, 99, true},
		{"suffix larger than file", "bytes=-500", 100, 0, 99, true},
		{"end beyond size clamps", "bytes=90-200", 100, 90, 99, true},
		{"start beyond size", "bytes=150-", 100, 0, 0, false},
		{"inverted", "bytes=60-40", 100, 0, 0, false},
		{"zero-length file", "bytes=0-0", 0, 0, 0, false},
		{"no bytes prefix", "items=0-5", 100, 0, 0, false},
		{"garbage", "bytes=a-b", 100, 0, 0, false},
		{"bare dash", "bytes=-", 100, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, end, ok := parseRange(tt.header, tt.size)
			if start != tt.wantStart || end != tt.wantEnd || ok != tt.wantOK {
				t.Errorf("parseRange(%q, %d) = (%d, %d, %v), want (%d, %d, %v)",
					tt.header, tt.size, start, end, ok, tt.wantStart, tt.wantEnd, tt.wantOK)
			}
		})
	}
}
