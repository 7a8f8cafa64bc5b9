// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/note-export/pkg/types"
)

// scriptedServer runs a websocket endpoint that records every client frame
// and plays back server frames according to a per-test handler.
type scriptedServer struct {
	*httptest.Server
	received chan []byte
}

// newScriptedServer upgrades each connection and hands it to script. All
// client frames are recorded on the received channel before script sees
// the connection.
func newScriptedServer(t *testing.T, script func(conn *websocket.Conn, frames <-chan []byte)) *scriptedServer {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	received := make(chan []byte, 32)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		frames := make(chan []byte, 32)
		go func() {
			defer close(frames)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				received <- data
				frames <- data
			}
		}()
		script(conn, frames)
	}))

	return &scriptedServer{Server: ts, received: received}
}

func (s *scriptedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/editor/{kbGuid}/{docGuid}"
}

func (s *scriptedServer) drainReceived() [][]byte {
	var frames [][]byte
	for {
		select {
		case f := <-s.received:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func testCreds() Credentials {
	return Credentials{
		Token:       "ed-tok",
		UserID:      "u1",
		DisplayName: "Tester",
		AvatarURL:   "https://example.com/a.png",
		Permission:  "editor",
	}
}

func testConfig(url string) types.WebSocketConfig {
	return types.WebSocketConfig{
		Enabled:        true,
		URLTemplate:    url,
		ConnectTimeout: 2 * time.Second,
		MessageTimeout: 2 * time.Second,
	}
}

func sendJSON(conn *websocket.Conn, v string) {
	conn.WriteMessage(websocket.TextMessage, []byte(v))
}

func TestFetch_HappyPath(t *testing.T) {
	payload := `{"blocks":[{"type":"text","text":[{"insert":"hello"}]}]}`

	ts := newScriptedServer(t, func(conn *websocket.Conn, frames <-chan []byte) {
		<-frames // initial handshake
		sendJSON(conn, `{"a":"init","id":42}`)
		<-frames // handshake echo
		sendJSON(conn, `{"a":"hs"}`)
		<-frames // fetch request
		sendJSON(conn, `{"a":"f","data":`+payload+`}`)
		<-frames // wait for close
	})
	defer ts.Close()

	sess := NewSession(testConfig(ts.wsURL()), "kb1", "doc1", testCreds())
	got, err := sess.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(got))
	assert.Equal(t, StateDone, sess.State())
	assert.Equal(t, 3, sess.MessagesReceived())

	// The wire frames: handshake, handshake echo, fetch. Both handshakes
	// must carry the full auth context with a literal null id.
	frames := ts.drainReceived()
	require.Len(t, frames, 3)
	for _, frame := range frames[:2] {
		var hs map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(frame, &hs))
		assert.Equal(t, "null", string(hs["id"]))
		var auth map[string]string
		require.NoError(t, json.Unmarshal(hs["auth"], &auth))
		assert.Equal(t, "kb1", auth["appId"])
		assert.Equal(t, "doc1", auth["docId"])
		assert.Equal(t, "ed-tok", auth["token"])
	}
	assert.JSONEq(t, `{"a":"f","c":"kb1","d":"doc1"}`, string(frames[2]))
}

func TestFetch_InitThenSilenceFailsAfterOneEcho(t *testing.T) {
	ts := newScriptedServer(t, func(conn *websocket.Conn, frames <-chan []byte) {
		<-frames
		sendJSON(conn, `{"a":"init","id":7}`)
		// Eat the echo, then go silent until the client gives up.
		<-frames
		time.Sleep(500 * time.Millisecond)
	})
	defer ts.Close()

	cfg := testConfig(ts.wsURL())
	cfg.MessageTimeout = 100 * time.Millisecond

	sess := NewSession(cfg, "kb1", "doc1", testCreds())
	_, err := sess.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, sess.State())
	assert.Contains(t, err.Error(), "after 1 messages")

	// Exactly two handshakes on the wire: the initial one and one echo.
	frames := ts.drainReceived()
	hsCount := 0
	for _, frame := range frames {
		var msg map[string]any
		if json.Unmarshal(frame, &msg) == nil && msg["a"] == "hs" {
			hsCount++
		}
	}
	assert.Equal(t, 2, hsCount)
}

func TestFetch_RepeatedInitDoesNotReEcho(t *testing.T) {
	payload := `{"blocks":[]}`

	ts := newScriptedServer(t, func(conn *websocket.Conn, frames <-chan []byte) {
		<-frames
		sendJSON(conn, `{"a":"init","id":1}`)
		<-frames
		sendJSON(conn, `{"a":"init","id":2}`)
		sendJSON(conn, `{"a":"hs"}`)
		<-frames
		sendJSON(conn, `{"a":"f","data":`+payload+`}`)
		<-frames
	})
	defer ts.Close()

	sess := NewSession(testConfig(ts.wsURL()), "kb1", "doc1", testCreds())
	_, err := sess.Fetch(context.Background())
	require.NoError(t, err)

	frames := ts.drainReceived()
	hsCount := 0
	for _, frame := range frames {
		var msg map[string]any
		if json.Unmarshal(frame, &msg) == nil && msg["a"] == "hs" {
			hsCount++
		}
	}
	assert.Equal(t, 2, hsCount, "the handshake echo must be suppressed on later init frames")
}

func TestFetch_SkipsNonJSONAndBinaryFrames(t *testing.T) {
	payload := `{"blocks":[{"type":"text","text":[{"insert":"x"}]}]}`

	ts := newScriptedServer(t, func(conn *websocket.Conn, frames <-chan []byte) {
		<-frames
		conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
		conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0xfe, 0x00})
		// Binary frames holding UTF-8 JSON are decoded as text.
		conn.WriteMessage(websocket.BinaryMessage, []byte(`{"a":"init","id":9}`))
		<-frames
		sendJSON(conn, `{"a":"hs"}`)
		<-frames
		sendJSON(conn, `{"a":"f","data":`+payload+`}`)
		<-frames
	})
	defer ts.Close()

	sess := NewSession(testConfig(ts.wsURL()), "kb1", "doc1", testCreds())
	got, err := sess.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(got))
	assert.Equal(t, 5, sess.MessagesReceived())
}

func TestFetch_SendsInitPayload(t *testing.T) {
	ts := newScriptedServer(t, func(conn *websocket.Conn, frames <-chan []byte) {
		<-frames // handshake
		<-frames // init payload
		sendJSON(conn, `{"a":"init","id":1}`)
		<-frames
		sendJSON(conn, `{"a":"hs"}`)
		<-frames
		sendJSON(conn, `{"a":"f","data":{"blocks":[]}}`)
		<-frames
	})
	defer ts.Close()

	cfg := testConfig(ts.wsURL())
	cfg.InitPayload = "deadbeef"
	cfg.InitPayloadEncoding = types.InitPayloadHex

	sess := NewSession(cfg, "kb1", "doc1", testCreds())
	_, err := sess.Fetch(context.Background())
	require.NoError(t, err)

	frames := ts.drainReceived()
	require.GreaterOrEqual(t, len(frames), 2)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, frames[1])
}

func TestFetch_ConnectFailure(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1/editor/{kbGuid}/{docGuid}")
	cfg.ConnectTimeout = 200 * time.Millisecond

	sess := NewSession(cfg, "kb1", "doc1", testCreds())
	_, err := sess.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, sess.State())
}

func TestDecodeInitPayload(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		encoding types.InitPayloadEncoding
		want     []byte
		wantType int
		wantErr  bool
	}{
		{"text", "ping", types.InitPayloadText, []byte("ping"), websocket.TextMessage, false},
		{"default is text", "ping", "", []byte("ping"), websocket.TextMessage, false},
		{"hex", "0001ff", types.InitPayloadHex, []byte{0x00, 0x01, 0xff}, websocket.BinaryMessage, false},
		{"base64", "aGVsbG8=", types.InitPayloadBase64, []byte("hello"), websocket.BinaryMessage, false},
		{"bad hex", "zz", types.InitPayloadHex, nil, 0, true},
		{"unknown encoding", "x", "rot13", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, messageType, err := decodeInitPayload(tt.payload, tt.encoding)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
			assert.Equal(t, tt.wantType, messageType)
		})
	}
}
