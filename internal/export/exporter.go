// Package export orchestrates note retrieval and Markdown output. Each
// note is fetched through an ordered chain of transport strategies,
// rendered, and written alongside metadata and (for socket retrievals)
// the raw payload.
package export

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/note-export/internal/markdown"
	"github.com/pdiddy/note-export/internal/state"
	"github.com/pdiddy/note-export/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"
)

// NoteSource enumerates folders and the notes inside them. Implemented
// by the REST client.
type NoteSource interface {
	ListFolders(ctx context.Context) ([]string, error)
	Notes(ctx context.Context, folder string) iter.Seq2[types.NoteInfo, error]
}

// Summary holds the outcome of a batch export run.
type Summary struct {
	Exported int
	Skipped  int
	Failed   int
}

// Total returns the total number of notes processed.
func (s Summary) Total() int {
	return s.Exported + s.Skipped + s.Failed
}

// HasFailures reports whether any notes failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Retrieval is one note's outcome in a folder sequence: the rendered
// Markdown and the transport that produced it, a skip marker, or a
// per-note error. Per-note errors never end the sequence.
type Retrieval struct {
	Note      types.NoteInfo
	Markdown  string
	RawJSON   []byte
	Transport types.Transport
	Skipped   bool
	Err       error
}

// Exporter walks folders of a knowledge base and writes one Markdown
// file per note. A nil state store disables incremental skipping.
type Exporter struct {
	source     NoteSource
	strategies []Strategy
	cfg        types.ExportConfig
	store      *state.Store
	w          io.Writer

	records []types.RetrievalRecord
}

// New creates an Exporter. Strategies are tried in the given order for
// every note.
func New(source NoteSource, strategies []Strategy, cfg types.ExportConfig, store *state.Store, w io.Writer) *Exporter {
	return &Exporter{
		source:     source,
		strategies: strategies,
		cfg:        cfg,
		store:      store,
		w:          w,
	}
}

// Records returns one retrieval record per processed note, in order.
func (e *Exporter) Records() []types.RetrievalRecord {
	return e.records
}

// Retrievals returns a lazy sequence over one folder: each note is
// fetched through the strategy chain as the sequence advances. The
// yielded error is non-nil only for sequence-ending conditions (listing
// failure, cancellation); individual note failures arrive as
// Retrieval.Err and the sequence continues.
func (e *Exporter) Retrievals(ctx context.Context, folder string) iter.Seq2[Retrieval, error] {
	return func(yield func(Retrieval, error) bool) {
		for note, err := range e.source.Notes(ctx, folder) {
			if err != nil {
				yield(Retrieval{}, fmt.Errorf("listing notes in %s: %w", folder, err))
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Retrieval{}, err)
				return
			}

			if e.store != nil && e.cfg.Incremental {
				needs, err := e.store.NeedsExport(ctx, note.DocGUID, note.ModifiedTime())
				if err == nil && !needs {
					if !yield(Retrieval{Note: note, Skipped: true}, nil) {
						return
					}
					continue
				}
			}

			result, transport, err := e.fetch(ctx, note)
			r := Retrieval{Note: note, Transport: transport, Err: err}
			if err == nil {
				r.Markdown = result.Markdown
				r.RawJSON = result.RawJSON
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// ExportAll exports every folder in the knowledge base.
func (e *Exporter) ExportAll(ctx context.Context) (Summary, error) {
	folders, err := e.source.ListFolders(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing folders: %w", err)
	}
	return e.ExportFolders(ctx, folders)
}

// ExportFolders exports the given folders, printing per-note status and
// returning a summary. It continues after individual note failures but
// stops on listing errors and context cancellation.
func (e *Exporter) ExportFolders(ctx context.Context, folders []string) (Summary, error) {
	var summary Summary
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		fmt.Fprintf(e.w, "folder: %s\n", folder)
		for r, err := range e.Retrievals(ctx, folder) {
			if err != nil {
				return summary, err
			}
			e.persist(ctx, folder, r, &summary)
		}
	}
	fmt.Fprintf(e.w, "\nExport summary: %d exported, %d skipped, %d failed (total: %d)\n",
		summary.Exported, summary.Skipped, summary.Failed, summary.Total())
	return summary, nil
}

// persist writes one retrieval's files and records the outcome. Write
// failures count against the note, never the batch.
func (e *Exporter) persist(ctx context.Context, folder string, r Retrieval, summary *Summary) {
	if r.Skipped {
		fmt.Fprintf(e.w, "skipped: %s (unchanged)\n", r.Note.Title)
		summary.Skipped++
		return
	}

	record := types.RetrievalRecord{
		DocGUID:   r.Note.DocGUID,
		Title:     r.Note.Title,
		Folder:    folder,
		Transport: r.Transport,
		Timestamp: time.Now().UTC(),
	}

	err := r.Err
	var name string
	if err == nil {
		name, err = e.write(folder, r)
	}
	if err != nil {
		fmt.Fprintf(e.w, "failed:  %s (%v)\n", r.Note.Title, err)
		summary.Failed++
		record.Error = err.Error()
		e.records = append(e.records, record)
		return
	}

	fmt.Fprintf(e.w, "exported: %s (%s)\n", name, r.Transport)
	summary.Exported++
	record.Success = true
	e.records = append(e.records, record)

	if e.store != nil {
		if err := e.store.MarkExported(ctx, record, r.Note.ModifiedTime()); err != nil {
			fmt.Fprintf(e.w, "  warning: recording export state failed: %v\n", err)
		}
	}
}

// fetch tries each strategy in order and returns the first success. The
// returned transport names the strategy that produced the result, or the
// last one tried on total failure.
func (e *Exporter) fetch(ctx context.Context, note types.NoteInfo) (Result, types.Transport, error) {
	var (
		lastErr   error
		transport types.Transport
	)
	for _, strategy := range e.strategies {
		result, err := strategy.Fetch(ctx, note)
		transport = strategy.Name()
		if err == nil {
			return result, transport, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no retrieval strategies configured")
	}
	return Result{}, transport, lastErr
}

// write persists the Markdown file, the raw payload mirror, and the
// metadata sidecar, returning the chosen filename stem.
func (e *Exporter) write(folder string, r Retrieval) (string, error) {
	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	stem := markdown.FilenameFromContent(r.Markdown, e.cfg.FilenameLength)
	name := markdown.UniqueName(e.cfg.OutputDir, stem)

	mdPath := filepath.Join(e.cfg.OutputDir, name+".md")
	if err := os.WriteFile(mdPath, []byte(r.Markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", mdPath, err)
	}

	if r.RawJSON != nil {
		dir := filepath.Join(e.cfg.OutputDir, rawDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating raw directory: %w", err)
		}
		rawPath := filepath.Join(dir, name+".json")
		if err := os.WriteFile(rawPath, r.RawJSON, 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", rawPath, err)
		}
	}

	if err := e.writeMetadata(folder, r, name); err != nil {
		return "", err
	}
	return name, nil
}

// noteMetadata is the YAML sidecar written next to each exported note.
type noteMetadata struct {
	DocGUID      string    `yaml:"doc_guid"`
	Title        string    `yaml:"title"`
	Folder       string    `yaml:"folder"`
	Transport    string    `yaml:"transport"`
	DataModified time.Time `yaml:"data_modified"`
	ExportedAt   time.Time `yaml:"exported_at"`
}

func (e *Exporter) writeMetadata(folder string, r Retrieval, name string) error {
	dir := filepath.Join(e.cfg.OutputDir, metadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}
	meta := noteMetadata{
		DocGUID:      r.Note.DocGUID,
		Title:        r.Note.Title,
		Folder:       folder,
		Transport:    string(r.Transport),
		DataModified: r.Note.ModifiedTime(),
		ExportedAt:   time.Now().UTC(),
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
