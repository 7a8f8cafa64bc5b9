// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Transport names which retrieval path produced a document's Markdown.
type Transport string

const (
	TransportSocket Transport = "socket"
	TransportREST   Transport = "rest"
)

// RetrievalRecord is the per-document provenance entry accumulated over an
// export run. Failed records are written to the run's failure log.
type RetrievalRecord struct {
	DocGUID   string    `json:"doc_guid" yaml:"doc_guid"`
	Title     string    `json:"title" yaml:"title"`
	Folder    string    `json:"folder" yaml:"folder"`
	Transport Transport `json:"transport,omitempty" yaml:"transport,omitempty"`
	Success   bool      `json:"success" yaml:"success"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
