// Package persistence saves and loads annotation documents through a
// pluggable backend.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
)

// ErrNotFound is returned by a backend when no artifact exists yet.
var ErrNotFound = errors.New("annotation artifact not found")

// ArtifactSuffix is appended to the source file's base name.
const ArtifactSuffix = "_annotations.xml"

// ArtifactName derives the artifact a source document's annotations are
// stored under: "plans/A-101.pdf" becomes "A-101_annotations.xml".
func ArtifactName(sourceID string) string {
	name := path.Base(strings.ReplaceAll(sourceID, "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		name = "unknown"
	}
	return name + ArtifactSuffix
}

// Metadata travels with every save.
type Metadata struct {
	Category   string `json:"category"`
	Text       string `json:"text"`
	ProjectID  int    `json:"projectId"`
	RevisionID int    `json:"revisionId"`
	RevisionNo int    `json:"revisionNo"`
}

// SaveRequest is one write of a serialized document.
type SaveRequest struct {
	RequestID    string `json:"requestId"`
	DocumentPath string `json:"documentPath"`
	ArtifactName string `json:"artifactName"`
	Content      string `json:"content"`
	Metadata
}

// Backend stores artifacts. Fetch returns ErrNotFound for unknown names.
type Backend interface {
	Store(ctx context.Context, req SaveRequest) error
	Fetch(ctx context.Context, artifactName string) (string, error)
}

// Bridge connects the in-memory store to a backend. Saves are dispatched in
// the background and never report failure to the caller.
type Bridge struct {
	backend Backend
	timeout time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[string]map[uint64]chan struct{} // artifact -> in-flight saves
}

// NewBridge returns a bridge writing to backend.
func NewBridge(backend Backend) *Bridge {
	return &Bridge{
		backend: backend,
		timeout: 30 * time.Second,
		pending: make(map[string]map[uint64]chan struct{}),
	}
}

// track registers an in-flight save and returns the func that retires it.
func (b *Bridge) track(artifactName string) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := b.seq
	done := make(chan struct{})
	if b.pending[artifactName] == nil {
		b.pending[artifactName] = make(map[uint64]chan struct{})
	}
	b.pending[artifactName][id] = done

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.pending[artifactName], id)
		if len(b.pending[artifactName]) == 0 {
			delete(b.pending, artifactName)
		}
		close(done)
	}
}

// inflight snapshots the saves dispatched so far, for one artifact or for
// all of them when artifactName is empty.
func (b *Bridge) inflight(artifactName string) []chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []chan struct{}
	for name, saves := range b.pending {
		if artifactName != "" && name != artifactName {
			continue
		}
		for _, done := range saves {
			out = append(out, done)
		}
	}
	return out
}

// Save serializes doc now and writes it asynchronously. Concurrent saves are
// not ordered; the last write to reach the backend wins.
func (b *Bridge) Save(doc *annotations.Document, sourceID string, meta Metadata) string {
	req := SaveRequest{
		RequestID:    uuid.NewString(),
		DocumentPath: sourceID,
		ArtifactName: ArtifactName(sourceID),
		Content:      annotations.ToWireFormat(doc),
		Metadata:     meta,
	}

	finish := b.track(req.ArtifactName)
	go func() {
		defer finish()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		if err := b.backend.Store(ctx, req); err != nil {
			slog.Error("Failed to save annotations", "artifact", req.ArtifactName, "request", req.RequestID, "err", err)
			return
		}
		slog.Debug("Saved annotations", "artifact", req.ArtifactName, "request", req.RequestID, "bytes", len(req.Content))
	}()

	return req.RequestID
}

// Load fetches and parses the artifact for sourceID. A missing artifact, a
// transport failure and a malformed document all yield an empty document.
func (b *Bridge) Load(ctx context.Context, sourceID string) *annotations.Document {
	name := ArtifactName(sourceID)

	content, err := b.backend.Fetch(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Info("No saved annotations, starting empty", "artifact", name)
		} else {
			slog.Error("Failed to load annotations, starting empty", "artifact", name, "err", err)
		}
		return annotations.New()
	}

	res := annotations.FromWireFormat(content)
	if res.Status == annotations.Empty {
		slog.Warn("Saved annotations are malformed, starting empty", "artifact", name, "err", res.Err)
	}
	return res.Document
}

// Wait blocks until every save dispatched before the call has finished.
func (b *Bridge) Wait() {
	for _, done := range b.inflight("") {
		<-done
	}
}

// WaitFor blocks until the saves of sourceID's artifact dispatched before the
// call have finished, or ctx is done. Saves of other documents are not
// waited on.
func (b *Bridge) WaitFor(ctx context.Context, sourceID string) error {
	for _, done := range b.inflight(ArtifactName(sourceID)) {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func wrapStatus(op string, code int, body string) error {
	return fmt.Errorf("%s returned status %d: %s", op, code, strings.TrimSpace(body))
}
