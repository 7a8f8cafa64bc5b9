// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/note-export/internal/api"
	"github.com/pdiddy/note-export/internal/htmlconv"
	"github.com/pdiddy/note-export/internal/markdown"
	"github.com/pdiddy/note-export/internal/wsclient"
	"github.com/pdiddy/note-export/pkg/types"
)

// Result is one strategy's successful retrieval: the rendered Markdown
// and, for the socket transport, the raw block-tree payload for the
// audit mirror.
type Result struct {
	Markdown string
	RawJSON  []byte
}

// Strategy retrieves one document and renders it to Markdown. Strategies
// are tried in order; the first non-empty result wins.
type Strategy interface {
	Name() types.Transport
	Fetch(ctx context.Context, note types.NoteInfo) (Result, error)
}

// TokenIssuer issues per-document editor tokens. Implemented by the REST
// client.
type TokenIssuer interface {
	IssueEditorToken(ctx context.Context, docGUID string) (*api.EditorToken, error)
}

// SocketStrategy retrieves documents over the real-time socket protocol.
type SocketStrategy struct {
	Config types.WebSocketConfig
	Auth   api.Auth
	Tokens TokenIssuer
}

func (s *SocketStrategy) Name() types.Transport { return types.TransportSocket }

// Fetch runs one socket session and converts the payload. An empty
// conversion result is an error so the caller falls through to REST.
func (s *SocketStrategy) Fetch(ctx context.Context, note types.NoteInfo) (Result, error) {
	creds, err := s.credentials(ctx, note.DocGUID)
	if err != nil {
		return Result{}, err
	}

	session := wsclient.NewSession(s.Config, s.Auth.KbGUID(), note.DocGUID, creds)
	payload, err := session.Fetch(ctx)
	if err != nil {
		return Result{}, err
	}

	md, err := markdown.Convert(payload)
	if err != nil {
		return Result{}, fmt.Errorf("converting socket payload for %s: %w", note.DocGUID, err)
	}
	if md == "" {
		return Result{}, fmt.Errorf("socket payload for %s rendered empty", note.DocGUID)
	}
	return Result{Markdown: md, RawJSON: payload}, nil
}

// credentials resolves the handshake auth context: a statically configured
// editor token paired with the REST session's identity, or a per-document
// token-issuance call.
func (s *SocketStrategy) credentials(ctx context.Context, docGUID string) (wsclient.Credentials, error) {
	if s.Config.EditorToken != "" {
		return wsclient.Credentials{
			Token:       s.Config.EditorToken,
			UserID:      s.Auth.UserGUID(),
			DisplayName: s.Auth.UserName(),
			AvatarURL:   api.AvatarURL(s.Auth),
			Permission:  "editor",
		}, nil
	}

	token, err := s.Tokens.IssueEditorToken(ctx, docGUID)
	if err != nil {
		return wsclient.Credentials{}, err
	}
	avatar := token.AvatarURL
	if avatar == "" {
		avatar = api.AvatarURL(s.Auth)
	}
	return wsclient.Credentials{
		Token:       token.Token,
		UserID:      token.UserID,
		DisplayName: token.DisplayName,
		AvatarURL:   avatar,
		Permission:  token.Permission,
	}, nil
}

// HTMLFetcher fetches a note's raw legacy content. Implemented by the
// REST client.
type HTMLFetcher interface {
	NoteHTML(ctx context.Context, docGUID string) (string, error)
}

// RESTStrategy retrieves a note's raw content over the request/response
// API and converts legacy HTML to Markdown.
type RESTStrategy struct {
	Notes HTMLFetcher
	HTML  *htmlconv.Converter
}

func (s *RESTStrategy) Name() types.Transport { return types.TransportREST }

func (s *RESTStrategy) Fetch(ctx context.Context, note types.NoteInfo) (Result, error) {
	content, err := s.Notes.NoteHTML(ctx, note.DocGUID)
	if err != nil {
		return Result{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Result{}, fmt.Errorf("note %s has no content", note.DocGUID)
	}

	// Plain-text notes pass through; only markup goes to the converter.
	if !strings.HasPrefix(content, "<") {
		return Result{Markdown: content}, nil
	}

	md, err := s.HTML.Convert(content)
	if err != nil {
		return Result{}, fmt.Errorf("converting HTML for %s: %w", note.DocGUID, err)
	}
	if md == "" {
		return Result{}, fmt.Errorf("note %s converted to empty Markdown", note.DocGUID)
	}
	return Result{Markdown: md}, nil
}
