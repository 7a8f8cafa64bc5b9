// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
)

// BlockType tags the structural variant of a Block. Unrecognized tags are
// preserved as-is; the converter treats them as text blocks.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockTable BlockType = "table"
)

// Run is a contiguous styled text fragment within a text block.
type Run struct {
	Insert     string        `json:"insert"`
	Attributes RunAttributes `json:"attributes,omitempty"`
}

// RunAttributes holds the style flags carried by a Run. Color attributes
// exist on the wire but carry no Markdown representation and are not decoded.
type RunAttributes struct {
	Bold   bool `json:"style-bold,omitempty"`
	Italic bool `json:"style-italic,omitempty"`
	Strike bool `json:"style-strike,omitempty"`
	Code   bool `json:"style-code,omitempty"`
}

// Block is one structural unit of a document. The Text fields apply to text
// blocks, the Rows/Cols/Children fields to table blocks. Text is nil (not
// empty) when the wire payload carried no "text" key at all, which matters
// for table-cell rendering.
type Block struct {
	Type    BlockType `json:"type"`
	Text    []Run     `json:"text"`
	Heading int       `json:"heading,omitempty"`
	Quoted  bool      `json:"quoted,omitempty"`

	Rows        int      `json:"rows,omitempty"`
	Cols        int      `json:"cols,omitempty"`
	Children    []string `json:"children,omitempty"`
	HasRowTitle bool     `json:"hasRowTitle,omitempty"`
}

// Document is the unit of conversion: an ordered block sequence plus a side
// mapping from opaque block-identifier strings to the auxiliary block
// sequences referenced by table cells.
type Document struct {
	DocGUID string
	Title   string
	Blocks  []Block
	Cells   map[string][]Block
}

// ParseDocument decodes a block-tree JSON payload. The top-level "blocks"
// key holds the main sequence; every other top-level key whose value is a
// block array is recorded in Cells. A payload without a "blocks" key is not
// an error: it decodes to a Document with nil Blocks, which converts to the
// empty string.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing document JSON: %w", err)
	}

	doc := &Document{Cells: make(map[string][]Block)}

	for key, value := range raw {
		switch key {
		case "blocks":
			if err := json.Unmarshal(value, &doc.Blocks); err != nil {
				return nil, fmt.Errorf("parsing blocks: %w", err)
			}
		case "docGuid":
			json.Unmarshal(value, &doc.DocGUID)
		case "title":
			json.Unmarshal(value, &doc.Title)
		default:
			// Cell entries are the only other array-valued keys. Anything
			// that does not decode as a block array is metadata and skipped.
			var cell []Block
			if err := json.Unmarshal(value, &cell); err == nil {
				doc.Cells[key] = cell
			}
		}
	}

	return doc, nil
}
