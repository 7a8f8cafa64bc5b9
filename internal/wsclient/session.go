// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wsclient retrieves a document's block-tree JSON over the note
// service's real-time socket protocol. One Session serves one document and
// is never reused; the connection is closed on every exit path.
package wsclient

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/pdiddy/note-export/pkg/types"
)

// State is the session's position in the protocol state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAwaitingInit
	StateHandshaking
	StateAwaitingDocument
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAwaitingInit:
		return "awaiting-init"
	case StateHandshaking:
		return "handshaking"
	case StateAwaitingDocument:
		return "awaiting-document"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const defaultTimeout = 10 * time.Second

// Credentials is the auth context sent in the socket handshake.
type Credentials struct {
	Token       string
	UserID      string
	DisplayName string
	AvatarURL   string
	Permission  string
}

// Session is one socket retrieval attempt for one document.
type Session struct {
	cfg     types.WebSocketConfig
	kbGUID  string
	docGUID string
	creds   Credentials

	conn            *websocket.Conn
	state           State
	sessionID       json.RawMessage
	handshakeEchoed bool
	received        int
	payload         json.RawMessage
}

// NewSession prepares a socket session for one document. Nothing connects
// until Fetch is called.
func NewSession(cfg types.WebSocketConfig, kbGUID, docGUID string, creds Credentials) *Session {
	return &Session{
		cfg:     cfg,
		kbGUID:  kbGUID,
		docGUID: docGUID,
		creds:   creds,
		state:   StateDisconnected,
	}
}

// State returns the session's current protocol state.
func (s *Session) State() State { return s.state }

// MessagesReceived returns how many frames the pump has consumed, for
// failure diagnostics.
func (s *Session) MessagesReceived() int { return s.received }

// Fetch runs the session end-to-end: connect, double handshake, document
// fetch, teardown. It returns the raw block-tree payload on success. The
// socket is closed before Fetch returns, whatever the outcome.
func (s *Session) Fetch(ctx context.Context) (json.RawMessage, error) {
	if err := s.connect(ctx); err != nil {
		s.state = StateFailed
		return nil, err
	}
	defer s.conn.Close()

	payload, err := s.pump(ctx)
	if err != nil {
		s.state = StateFailed
		return nil, fmt.Errorf("socket session for %s failed after %d messages: %w",
			s.docGUID, s.received, err)
	}
	return payload, nil
}

func (s *Session) connect(ctx context.Context) error {
	endpoint := strings.NewReplacer(
		"{kbGuid}", s.kbGUID,
		"{docGuid}", s.docGUID,
	).Replace(s.cfg.URLTemplate)

	connectTimeout := s.cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = defaultTimeout
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: connectTimeout,
	}
	if s.cfg.SkipTLSVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	header := http.Header{}
	if s.cfg.Origin != "" {
		header.Set("Origin", s.cfg.Origin)
	}
	if s.cfg.UserAgent != "" {
		header.Set("User-Agent", s.cfg.UserAgent)
	}
	if s.creds.Token != "" {
		header.Set("X-Wiz-Token", s.creds.Token)
	}
	if s.cfg.Cookies != "" {
		header.Set("Cookie", s.cfg.Cookies)
	}
	for k, v := range s.cfg.AdditionalHeaders {
		header.Set(k, v)
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connecting to %s: HTTP %d: %w", endpoint, resp.StatusCode, err)
		}
		return fmt.Errorf("connecting to %s: %w", endpoint, err)
	}
	s.conn = conn
	s.state = StateConnected

	if err := s.sendHandshake(); err != nil {
		conn.Close()
		return err
	}
	if err := s.sendInitPayload(); err != nil {
		conn.Close()
		return err
	}
	s.state = StateAwaitingInit
	return nil
}

func (s *Session) sendHandshake() error {
	msg := clientMessage{
		Action: actionHandshake,
		Auth: &handshakeAuth{
			AppID:       s.kbGUID,
			UserID:      s.creds.UserID,
			DisplayName: s.creds.DisplayName,
			AvatarURL:   s.creds.AvatarURL,
			DocID:       s.docGUID,
			Token:       s.creds.Token,
			Permission:  s.creds.Permission,
		},
	}
	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("sending handshake: %w", err)
	}
	return nil
}

// sendInitPayload sends the optional raw priming payload configured for
// the protocol. Text payloads go as text frames, hex/base64 as binary.
func (s *Session) sendInitPayload() error {
	if s.cfg.InitPayload == "" {
		return nil
	}

	data, messageType, err := decodeInitPayload(s.cfg.InitPayload, s.cfg.InitPayloadEncoding)
	if err != nil {
		return err
	}
	s.setWriteDeadline()
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("sending init payload: %w", err)
	}
	return nil
}

func decodeInitPayload(payload string, encoding types.InitPayloadEncoding) ([]byte, int, error) {
	switch encoding {
	case types.InitPayloadText, "":
		return []byte(payload), websocket.TextMessage, nil
	case types.InitPayloadHex:
		data, err := hex.DecodeString(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("decoding hex init payload: %w", err)
		}
		return data, websocket.BinaryMessage, nil
	case types.InitPayloadBase64:
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("decoding base64 init payload: %w", err)
		}
		return data, websocket.BinaryMessage, nil
	default:
		return nil, 0, fmt.Errorf("unknown init payload encoding %q", encoding)
	}
}

// pump is the single-threaded blocking receive loop. Each receive is
// bounded by the message timeout; frames that are not valid JSON are
// skipped, not fatal.
func (s *Session) pump(ctx context.Context) (json.RawMessage, error) {
	messageTimeout := s.cfg.MessageTimeout
	if messageTimeout == 0 {
		messageTimeout = defaultTimeout
	}

	for s.state != StateDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		deadline := time.Now().Add(messageTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		s.conn.SetReadDeadline(deadline)

		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("in state %s: %w", s.state, err)
		}
		s.received++

		if messageType == websocket.BinaryMessage && !utf8.Valid(data) {
			continue
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if err := s.handle(msg); err != nil {
			return nil, err
		}
	}

	return s.payload, nil
}

// handle advances the state machine for one decoded server frame.
func (s *Session) handle(msg serverMessage) error {
	switch msg.Action {
	case actionInit:
		// The server expects the handshake echoed back exactly once after
		// it assigns a session id; later init frames must not re-trigger it.
		if s.handshakeEchoed {
			return nil
		}
		s.sessionID = msg.ID
		if err := s.sendHandshake(); err != nil {
			return err
		}
		s.handshakeEchoed = true
		s.state = StateHandshaking

	case actionHandshake:
		if s.state != StateHandshaking && s.state != StateAwaitingInit {
			return nil
		}
		req := fetchMessage{Action: actionFetch, Collection: s.kbGUID, Document: s.docGUID}
		if err := s.writeJSON(req); err != nil {
			return fmt.Errorf("sending document fetch: %w", err)
		}
		s.state = StateAwaitingDocument

	case actionFetch:
		if s.state != StateAwaitingDocument {
			return nil
		}
		if len(msg.Data) == 0 || string(msg.Data) == "null" {
			return nil
		}
		s.payload = msg.Data
		s.state = StateDone
	}

	return nil
}

func (s *Session) writeJSON(v any) error {
	s.setWriteDeadline()
	return s.conn.WriteJSON(v)
}

func (s *Session) setWriteDeadline() {
	timeout := s.cfg.MessageTimeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	s.conn.SetWriteDeadline(time.Now().Add(timeout))
}
