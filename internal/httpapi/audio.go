package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

// streamChunkSize is the buffer size for audio streaming.
const streamChunkSize = 1 << 20

var audioContentTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".mp4":  "audio/mp4",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
}

// handleStreamAudio serves the job's audio with HTTP Range support. A
// malformed or unsatisfiable Range degrades to a full 200 response instead
// of failing.
func (s *Server) handleStreamAudio(w http.ResponseWriter, r *http.Request) {
	j, err := s.lookupJob(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	f, info, err := s.artifacts.OpenUpload(j.FileName)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	defer f.Close()

	size := info.Size()
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", audioContentType(j.FileName))

	start, end, ok := parseRange(r.Header.Get("Range"), size)
	if !ok {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		s.stream(w, f, size)
		return
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		writeError(w, s.log, fmt.Errorf("httpapi: seek audio: %w", err))
		return
	}
	length := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)
	s.stream(w, f, length)
}

func (s *Server) stream(w io.Writer, f io.Reader, n int64) {
	buf := make([]byte, streamChunkSize)
	if _, err := io.CopyBuffer(w, io.LimitReader(f, n), buf); err != nil {
		// Client disconnects mid-stream are routine.
		s.log.Debug("audio stream interrupted", "error", err)
	}
}

// parseRange interprets a "bytes=START-END" header against size. The false
// return means "serve the full file": absent header, malformed syntax, or an
// inverted range all degrade rather than error.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || size == 0 {
		return 0, 0, false
	}
	first, last, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return 0, 0, false
	}

	switch {
	case first == "" && last == "":
		return 0, 0, false
	case first == "":
		// Suffix range: last N bytes.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	case last == "":
		// Open range: from START to the end.
		n, err := strconv.ParseInt(first, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		start, end = n, size-1
	default:
		a, err1 := strconv.ParseInt(first, 10, 64)
		b, err2 := strconv.ParseInt(last, 10, 64)
		if err1 != nil || err2 != nil || a < 0 {
			return 0, 0, false
		}
		start, end = a, b
		if end > size-1 {
			end = size - 1
		}
	}

	if start > end {
		return 0, 0, false
	}
	return start, end, true
}

func audioContentType(name string) string {
	if ct, ok := audioContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
