// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/note-export/internal/httputil"
	"github.com/pdiddy/note-export/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

// fakeAuth implements Auth against an httptest server and counts refreshes.
type fakeAuth struct {
	server    string
	token     string
	refreshes int32
}

func (a *fakeAuth) Headers() map[string]string {
	return map[string]string{"X-Wiz-Token": a.token}
}

func (a *fakeAuth) RefreshToken() error {
	atomic.AddInt32(&a.refreshes, 1)
	a.token = "refreshed-token"
	return nil
}

func (a *fakeAuth) KbGUID() string   { return "kb-guid-1" }
func (a *fakeAuth) KbServer() string { return a.server }
func (a *fakeAuth) UserGUID() string { return "user-guid-1" }
func (a *fakeAuth) UserName() string { return "tester" }

func newTestClient(ts *httptest.Server, rps float64) (*Client, *fakeAuth) {
	auth := &fakeAuth{server: ts.URL, token: "stale-token"}
	c := NewClient(auth, types.APIConfig{
		Timeout:            5 * time.Second,
		RateLimitPerSecond: rps,
		UserAgent:          "note-export-test/0.1",
	})
	return c, auth
}

func TestRequest_RefreshesTokenOnceOn401(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("X-Wiz-Token") != "refreshed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `["/"]`)
	}))
	defer ts.Close()

	c, auth := newTestClient(ts, 0)
	folders, err := c.ListFolders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/"}, folders)
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRequest_SecondUnauthorizedIsTerminal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c, auth := newTestClient(ts, 0)
	_, err := c.ListFolders(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	// Exactly one refresh attempt, never two.
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.refreshes))
}

func TestRequest_RetriesThreeTimesOn5xx(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c, _ := newTestClient(ts, 0)
	_, err := c.ListFolders(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRequest_RateLimiterSerializesCalls(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	const rps = 50.0
	const n = 5
	c, _ := newTestClient(ts, rps)

	startAt := time.Now()
	for i := 0; i < n; i++ {
		_, err := c.ListFolders(context.Background())
		require.NoError(t, err)
	}
	elapsed := time.Since(startAt)

	minElapsed := time.Duration(float64(n-1) / rps * float64(time.Second))
	assert.GreaterOrEqual(t, elapsed, minElapsed,
		"%d calls at %v/s finished in %v, want at least %v", n, rps, elapsed, minElapsed)
}

func TestListFolders_UnwrapsEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"returnCode":200,"result":["/Work/","/Archive/","/Inbox/"]}`)
	}))
	defer ts.Close()

	c, _ := newTestClient(ts, 0)
	folders, err := c.ListFolders(context.Background())
	require.NoError(t, err)
	// Sorted on return.
	assert.Equal(t, []string{"/Archive/", "/Inbox/", "/Work/"}, folders)
}

func TestNotes_PagesUntilShortPage(t *testing.T) {
	var requests []int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		requests = append(requests, start)

		// 150 notes total: one full page then a short one.
		total := 150
		var page []types.NoteInfo
		for i := start; i < total && i < start+count; i++ {
			page = append(page, types.NoteInfo{DocGUID: fmt.Sprintf("guid-%03d", i)})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page)
	}))
	defer ts.Close()

	c, _ := newTestClient(ts, 0)

	var got []types.NoteInfo
	for note, err := range c.Notes(context.Background(), "/Work/") {
		require.NoError(t, err)
		got = append(got, note)
	}
	assert.Len(t, got, 150)
	assert.Equal(t, []int{0, 100}, requests)
	assert.Equal(t, "guid-000", got[0].DocGUID)
	assert.Equal(t, "guid-149", got[149].DocGUID)

	// Restartable: ranging again re-issues the same pages.
	requests = nil
	count := 0
	for _, err := range c.Notes(context.Background(), "/Work/") {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 150, count)
	assert.Equal(t, []int{0, 100}, requests)
}

func TestNoteHTML(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{
			name:        "JSON response with html field",
			contentType: "application/json",
			body:        `{"returnCode":200,"result":{"html":"<p>hello</p>"}}`,
			want:        "<p>hello</p>",
		},
		{
			name:        "raw HTML response",
			contentType: "text/html",
			body:        "<html><body>raw</body></html>",
			want:        "<html><body>raw</body></html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			c, _ := newTestClient(ts, 0)
			html, err := c.NoteHTML(context.Background(), "doc-guid-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, html)
		})
	}
}

func TestIssueEditorToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ks/note/tokens/kb-guid-1/doc-guid-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"returnCode":200,"result":{"editorToken":"ed-tok","userId":"u1","displayName":"Tester","avatarUrl":"https://example.com/a.png","permission":"editor"}}`)
	}))
	defer ts.Close()

	c, _ := newTestClient(ts, 0)
	tok, err := c.IssueEditorToken(context.Background(), "doc-guid-1")
	require.NoError(t, err)
	assert.Equal(t, "ed-tok", tok.Token)
	assert.Equal(t, "u1", tok.UserID)
	assert.Equal(t, "editor", tok.Permission)
}

func TestIssueEditorToken_EmptyTokenIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"returnCode":200,"result":{}}`)
	}))
	defer ts.Close()

	c, _ := newTestClient(ts, 0)
	_, err := c.IssueEditorToken(context.Background(), "doc-guid-1")
	require.Error(t, err)
}

func TestAvatarURL(t *testing.T) {
	auth := &fakeAuth{server: "https://kb.example.com"}
	assert.Equal(t, "https://kb.example.com/as/user/avatar/user-guid-1", AvatarURL(auth))
}
