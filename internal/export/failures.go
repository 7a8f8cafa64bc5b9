// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/note-export/pkg/types"
)

// FailureLogName is the report written to the output directory when a
// run has failed notes.
const FailureLogName = "conversion_failures.json"

type failureLog struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Processed   int                     `json:"processed"`
	Failed      int                     `json:"failed"`
	Failures    []types.RetrievalRecord `json:"failures"`
}

// WriteFailureLog writes the failure report if any recorded retrieval
// failed. It returns the report path, or "" when there is nothing to
// report.
func (e *Exporter) WriteFailureLog() (string, error) {
	var failures []types.RetrievalRecord
	for _, r := range e.records {
		if !r.Success {
			failures = append(failures, r)
		}
	}
	if len(failures) == 0 {
		return "", nil
	}

	log := failureLog{
		GeneratedAt: time.Now().UTC(),
		Processed:   len(e.records),
		Failed:      len(failures),
		Failures:    failures,
	}
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling failure log: %w", err)
	}

	path := filepath.Join(e.cfg.OutputDir, FailureLogName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
