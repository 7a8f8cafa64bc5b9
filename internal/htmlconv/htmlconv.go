// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package htmlconv converts legacy HTML note content to Markdown. It is
// the REST fallback path for notes the socket transport cannot serve.
package htmlconv

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Converter wraps an html-to-markdown converter configured for note
// content. Safe for reuse across documents.
type Converter struct {
	conv *converter.Converter
}

// New creates a Converter with CommonMark and table support.
func New() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert renders HTML to Markdown. Whitespace-only output counts as
// empty so the caller's empty-result policy applies.
func (c *Converter) Convert(html string) (string, error) {
	markdown, err := c.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
