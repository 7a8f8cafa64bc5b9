// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"fmt"
	"net/http"
)

// EditorToken is the short-lived credential authorizing one document's
// real-time session over the socket protocol.
type EditorToken struct {
	Token       string `json:"editorToken"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Permission  string `json:"permission"`
}

// IssueEditorToken requests an editor token for one document. A failure
// here is a transport-level failure for the socket attempt; the caller
// falls back to REST rather than retrying.
func (c *Client) IssueEditorToken(ctx context.Context, docGUID string) (*EditorToken, error) {
	resp, err := c.request(ctx, http.MethodPost,
		fmt.Sprintf("/ks/note/tokens/%s/%s", c.auth.KbGUID(), docGUID), nil, struct{}{})
	if err != nil {
		return nil, fmt.Errorf("issuing editor token for %s: %w", docGUID, err)
	}
	defer resp.Body.Close()

	var token EditorToken
	if err := decodeResult(resp.Body, &token); err != nil {
		return nil, fmt.Errorf("issuing editor token for %s: %w", docGUID, err)
	}
	if token.Token == "" {
		return nil, fmt.Errorf("editor token response for %s carried no token", docGUID)
	}
	return &token, nil
}
