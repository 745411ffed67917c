package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/pkg/audio"
)

// targetFormat is what the ASR chunk endpoint expects.
var targetFormat = audio.Format{SampleRate: 16000, Channels: 1}

const liveChunkTimeout = 30 * time.Second

// livePartial is one incremental transcription result sent to the client.
type livePartial struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// handleLive upgrades to a websocket and transcribes incoming PCM chunks.
// Binary messages carry little-endian 16-bit PCM; sample_rate and channels
// query parameters describe the client's capture format (defaults 16000/1).
// Each chunk gets one JSON reply with the partial transcript.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	src := audio.Format{
		SampleRate: queryInt(r, "sample_rate", targetFormat.SampleRate),
		Channels:   queryInt(r, "channels", targetFormat.Channels),
	}
	if src.SampleRate <= 0 || src.Channels < 1 || src.Channels > 2 {
		writeError(w, s.log, apperr.Validation("unsupported capture format %s", src))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("live session accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")
	s.log.Info("live session started", "format", src.String())

	for {
		typ, data, err := conn.Read(r.Context())
		if err != nil {
			s.log.Debug("live session closed", "error", err)
			return
		}
		if typ != websocket.MessageBinary || len(data) == 0 {
			continue
		}

		pcm := audio.Normalize(data, src, targetFormat)
		wav := audio.EncodeWAV(pcm, targetFormat)

		ctx, cancel := context.WithTimeout(r.Context(), liveChunkTimeout)
		text, err := s.live.TranscribeChunk(ctx, wav)
		cancel()

		partial := livePartial{Text: text}
		if err != nil {
			s.log.Warn("live chunk transcription failed", "error", err)
			partial = livePartial{Error: "transcription unavailable"}
		}
		payload, _ := json.Marshal(partial)
		if err := conn.Write(r.Context(), websocket.MessageText, payload); err != nil {
			return
		}
	}
}
