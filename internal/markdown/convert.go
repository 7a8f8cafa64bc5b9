// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown renders a note's block-tree document into plain
// Markdown text. Rendering is pure: no I/O, and identical input yields
// byte-identical output.
package markdown

import (
	"strings"

	"github.com/pdiddy/note-export/pkg/types"
)

// Convert decodes a block-tree JSON payload and renders it to Markdown.
// A payload without a block sequence renders to the empty string; only a
// payload that fails to parse at all is an error.
func Convert(data []byte) (string, error) {
	doc, err := types.ParseDocument(data)
	if err != nil {
		return "", err
	}
	return Render(doc), nil
}

// Render converts a decoded document to Markdown. Blocks are rendered
// independently, preserving source order, and joined with a blank line.
func Render(doc *types.Document) string {
	var parts []string
	for _, block := range doc.Blocks {
		if rendered := renderBlock(block, doc); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, "\n\n")
}

// renderBlock dispatches on the block variant. Unknown variants degrade to
// text-block handling rather than failing the document.
func renderBlock(block types.Block, doc *types.Document) string {
	switch block.Type {
	case types.BlockTable:
		return renderTable(block, doc)
	default:
		return renderText(block)
	}
}

// renderText concatenates the block's styled runs, then applies the
// heading or quote prefix. Heading takes precedence over quote.
func renderText(block types.Block) string {
	if len(block.Text) == 0 {
		return ""
	}

	var b strings.Builder
	for _, run := range block.Text {
		b.WriteString(styleRun(run))
	}
	text := strings.TrimSpace(b.String())

	switch {
	case block.Heading > 0:
		return strings.Repeat("#", block.Heading) + " " + text
	case block.Quoted:
		return "> " + text
	default:
		return text
	}
}

// styleRun wraps a run's text in its style markers. The composition order
// is fixed (bold, then italic, then strikethrough, then code, applied
// inside-out) so repeated conversion is byte-identical.
func styleRun(run types.Run) string {
	text := run.Insert
	if run.Attributes.Bold {
		text = "**" + text + "**"
	}
	if run.Attributes.Italic {
		text = "*" + text + "*"
	}
	if run.Attributes.Strike {
		text = "~~" + text + "~~"
	}
	if run.Attributes.Code {
		text = "`" + text + "`"
	}
	return text
}

// renderTable lays the cells out row-major and emits a Markdown table.
// The first data row is always rendered as the header row followed by a
// separator, independent of the source's header flag.
func renderTable(block types.Block, doc *types.Document) string {
	if block.Rows <= 0 || block.Cols <= 0 || len(block.Children) == 0 {
		return ""
	}

	rows := make([][]string, block.Rows)
	for i := 0; i < block.Rows; i++ {
		rows[i] = make([]string, block.Cols)
		for j := 0; j < block.Cols; j++ {
			index := i*block.Cols + j
			if index < len(block.Children) {
				rows[i][j] = cellContent(block.Children[index], doc)
			}
		}
	}

	var lines []string
	lines = append(lines, "| "+strings.Join(rows[0], " | ")+" |")

	separator := make([]string, block.Cols)
	for j := range separator {
		separator[j] = "---"
	}
	lines = append(lines, "| "+strings.Join(separator, " | ")+" |")

	for _, row := range rows[1:] {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

// cellContent resolves a cell identifier through the document's side
// mapping and joins the cell's text-bearing sub-blocks with a single
// space. Runs are styled as in text blocks; heading and quote markers do
// not apply inside cells.
func cellContent(cellID string, doc *types.Document) string {
	blocks, ok := doc.Cells[cellID]
	if !ok {
		return ""
	}

	var texts []string
	for _, block := range blocks {
		if block.Text == nil {
			continue
		}
		var b strings.Builder
		for _, run := range block.Text {
			b.WriteString(styleRun(run))
		}
		texts = append(texts, b.String())
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}
