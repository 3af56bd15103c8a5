// Package editor ties a document to its undo history and dependency graph
// and serializes every mutation behind one lock.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"github.com/wizzomafizzo/setdeck/internal/document"
	"github.com/wizzomafizzo/setdeck/internal/graph"
	"github.com/wizzomafizzo/setdeck/internal/history"
	"github.com/wizzomafizzo/setdeck/internal/logging"
)

// ErrNoChange is returned by a mutation that left the document as it was.
// The recorded undo step is dropped.
var ErrNoChange = errors.New("nothing changed")

// Session is an editing session over one .setting file.
type Session struct {
	mu      sync.Mutex
	fs      afero.Fs
	path    string
	opts    document.Options
	doc     *document.Document
	history *history.History[document.Snapshot]
	graph   *graph.Graph
}

// New starts a session over text. path is where Save writes by default
// and may be empty.
func New(ctx context.Context, fs afero.Fs, path, text string, opts document.Options) (*Session, error) {
	s := &Session{fs: fs, path: path, opts: opts}
	if err := s.load(ctx, text); err != nil {
		return nil, err
	}
	return s, nil
}

// Open reads path from fs and starts a session over it.
func Open(ctx context.Context, fs afero.Fs, path string, opts document.Options) (*Session, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return New(ctx, fs, path, string(data), opts)
}

func (s *Session) load(ctx context.Context, text string) error {
	doc, err := document.Parse(ctx, text, s.opts)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	s.doc = doc
	s.history = history.New[document.Snapshot](doc)
	s.graph = graph.Build(doc.Tools(), doc.Modifiers())
	return nil
}

// Reload rebuilds the document from text and forgets all history.
func (s *Session) Reload(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, text)
}

// Path returns the file the session saves to.
func (s *Session) Path() string {
	return s.path
}

// Do records an undo step labelled label and applies fn. When fn fails the
// step is dropped; fn must not mutate before failing.
func (s *Session) Do(ctx context.Context, label string, fn func(*document.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Record(ctx, label)
	if err := fn(s.doc); err != nil {
		s.history.Discard()
		return err
	}
	return nil
}

// View runs fn with read access to the document.
func (s *Session) View(fn func(*document.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.doc)
}

// Walk hands the entries to fn in display-order chunks of size chunk. The
// lock is held for the whole walk so no mutation can interleave.
func (s *Session) Walk(ctx context.Context, chunk int, fn func([]document.Entry) error) error {
	if chunk <= 0 {
		chunk = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.doc.Entries()
	for start := 0; start < len(entries); start += chunk {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("walk interrupted: %w", err)
		}
		if err := fn(entries[start:min(start+chunk, len(entries))]); err != nil {
			return err
		}
	}
	return nil
}

// Undo reverts the last recorded step and returns its label.
func (s *Session) Undo(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label := s.history.UndoLabel()
	return label, s.history.Undo(ctx)
}

// Redo reapplies the last undone step and returns its label.
func (s *Session) Redo(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label := s.history.RedoLabel()
	return label, s.history.Redo(ctx)
}

// Graph returns the dependency graph of the current parse.
func (s *Session) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Serialize renders the current document.
func (s *Session) Serialize() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Serialize()
}

// Save writes the document to path, or to the session path when empty.
func (s *Session) Save(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = s.path
	}
	if path == "" {
		return "", errors.New("no output path")
	}
	text := s.Serialize()
	if err := afero.WriteFile(s.fs, path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Get(ctx).Info().Str("path", path).Int("bytes", len(text)).Msg("saved document")
	return path, nil
}
