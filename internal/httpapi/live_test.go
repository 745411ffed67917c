package httpapi

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestServer_Live(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	var gotWAV []byte
	env.asr.TranscribeChunkFunc = func(_ context.Context, wav []byte) (string, error) {
		gotWAV = wav
		return "hello world", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/v1/live?sample_rate=48000&channels=2"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// 10ms of 48kHz stereo silence.
	pcm := make([]byte, 48000/100*4)
	if err := conn.Write(ctx, websocket.MessageBinary, pcm); err != nil {
		t.Fatalf("write: %v", err)
	}

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v", typ)
	}
	var partial livePartial
	if err := json.Unmarshal(data, &partial); err != nil {
		t.Fatal(err)
	}
	if partial.Text != "hello world" || partial.Error != "" {
		t.Errorf("partial = %+v", partial)
	}

	// The chunk reaching ASR is WAV-framed 16kHz mono.
	if len(gotWAV) < 44 || string(gotWAV[:4]) != "RIFF" {
		t.Fatalf("chunk is not WAV framed: %d bytes", len(gotWAV))
	}
	// 10ms at 16kHz mono 16-bit = 320 bytes of PCM.
	if got := len(gotWAV) - 44; got != 320 {
		t.Errorf("pcm payload = %d bytes, want 320", got)
	}
}
