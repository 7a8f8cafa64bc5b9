// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/note-export/pkg/types"
)

// ListFolders returns all folder paths of the knowledge base, sorted.
func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	resp, err := c.request(ctx, http.MethodGet, "/ks/category/all/"+c.auth.KbGUID(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer resp.Body.Close()

	var folders []string
	if err := decodeResult(resp.Body, &folders); err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	sort.Strings(folders)
	return folders, nil
}

// ListNotes returns one page of a folder's note listing, newest first.
func (c *Client) ListNotes(ctx context.Context, folder string, start, count int) ([]types.NoteInfo, error) {
	query := url.Values{
		"category":     {folder},
		"start":        {strconv.Itoa(start)},
		"count":        {strconv.Itoa(count)},
		"orderBy":      {"modified"},
		"ascending":    {"desc"},
		"withAbstract": {"true"},
	}

	resp, err := c.request(ctx, http.MethodGet, "/ks/note/list/category/"+c.auth.KbGUID(), query, nil)
	if err != nil {
		return nil, fmt.Errorf("listing notes in %s: %w", folder, err)
	}
	defer resp.Body.Close()

	var notes []types.NoteInfo
	if err := decodeResult(resp.Body, &notes); err != nil {
		return nil, fmt.Errorf("listing notes in %s: %w", folder, err)
	}
	return notes, nil
}

// Notes returns a lazy sequence over every note in a folder, paging
// transparently: successive pages are requested until a short page signals
// exhaustion. The sequence is restartable by ranging over it again.
func (c *Client) Notes(ctx context.Context, folder string) iter.Seq2[types.NoteInfo, error] {
	return func(yield func(types.NoteInfo, error) bool) {
		start := 0
		for {
			page, err := c.ListNotes(ctx, folder, start, c.pageSize)
			if err != nil {
				yield(types.NoteInfo{}, err)
				return
			}
			if len(page) == 0 {
				return
			}
			for _, note := range page {
				if !yield(note, nil) {
					return
				}
			}
			start += len(page)
			if len(page) < c.pageSize {
				return
			}
		}
	}
}

// NoteView fetches a note's metadata record.
func (c *Client) NoteView(ctx context.Context, docGUID string) (*types.NoteInfo, error) {
	resp, err := c.request(ctx, http.MethodGet,
		fmt.Sprintf("/ks/note/view/%s/%s/", c.auth.KbGUID(), docGUID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching note %s: %w", docGUID, err)
	}
	defer resp.Body.Close()

	var note types.NoteInfo
	if err := decodeResult(resp.Body, &note); err != nil {
		return nil, fmt.Errorf("fetching note %s: %w", docGUID, err)
	}
	return &note, nil
}

// noteDownload mirrors the download endpoint's JSON response shape.
type noteDownload struct {
	HTML string          `json:"html"`
	Info *types.NoteInfo `json:"info"`
}

// NoteHTML fetches a note's raw content. JSON responses carry the content
// in an "html" field; anything else is returned verbatim as the content.
func (c *Client) NoteHTML(ctx context.Context, docGUID string) (string, error) {
	query := url.Values{
		"downloadInfo": {"0"},
		"downloadData": {"1"},
	}
	resp, err := c.request(ctx, http.MethodGet,
		fmt.Sprintf("/ks/note/download/%s/%s", c.auth.KbGUID(), docGUID), query, nil)
	if err != nil {
		return "", fmt.Errorf("downloading note %s: %w", docGUID, err)
	}
	defer resp.Body.Close()

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var dl noteDownload
		if err := decodeResult(resp.Body, &dl); err != nil {
			return "", fmt.Errorf("downloading note %s: %w", docGUID, err)
		}
		return dl.HTML, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("downloading note %s: %w", docGUID, err)
	}
	return string(data), nil
}

// DownloadAttachment fetches one attachment's bytes.
func (c *Client) DownloadAttachment(ctx context.Context, docGUID, attGUID string) ([]byte, error) {
	resp, err := c.request(ctx, http.MethodGet,
		fmt.Sprintf("/ks/attachment/download/%s/%s/%s", c.auth.KbGUID(), docGUID, attGUID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading attachment %s: %w", attGUID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloading attachment %s: %w", attGUID, err)
	}
	return data, nil
}
