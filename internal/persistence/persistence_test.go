package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
)

func TestArtifactName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A-101.pdf", "A-101_annotations.xml"},
		{"orionprojects/42/rev1/A-101.PDF", "A-101_annotations.xml"},
		{"https://files.example.org/plans/Level 2.pdf", "Level 2_annotations.xml"},
		{`C:\plans\B-200.pdf`, "B-200_annotations.xml"},
		{"noext", "noext_annotations.xml"},
		{"", "unknown_annotations.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ArtifactName(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

type memoryBackend struct {
	mu        sync.Mutex
	saved     []SaveRequest
	artifacts map[string]string
	storeErr  error
	fetchErr  error
}

func (m *memoryBackend) Store(ctx context.Context, req SaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, req)
	return m.storeErr
}

func (m *memoryBackend) Fetch(ctx context.Context, name string) (string, error) {
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	content, ok := m.artifacts[name]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

func TestBridgeSave(t *testing.T) {
	backend := &memoryBackend{}
	bridge := NewBridge(backend)

	doc := annotations.New()
	doc.AddRecord(2, annotations.Record{Type: "door", X: 10, Y: 10, Width: 40, Height: 20})
	id := bridge.Save(doc, "plans/A-101.pdf", Metadata{Category: "door", Text: "D1", ProjectID: 7, RevisionID: 1, RevisionNo: 3})

	// Mutations after Save must not leak into the dispatched content.
	doc.AddRecord(2, annotations.Record{Type: "late"})
	bridge.Wait()

	if len(backend.saved) != 1 {
		t.Fatalf("Expected one save, got %d", len(backend.saved))
	}
	got := backend.saved[0]
	if got.RequestID != id || id == "" {
		t.Errorf("Expected request id %q, got %q", id, got.RequestID)
	}
	if got.ArtifactName != "A-101_annotations.xml" || got.DocumentPath != "plans/A-101.pdf" {
		t.Errorf("Unexpected target %q / %q", got.ArtifactName, got.DocumentPath)
	}
	if got.ProjectID != 7 || got.RevisionNo != 3 || got.Category != "door" || got.Text != "D1" {
		t.Errorf("Unexpected metadata %+v", got.Metadata)
	}

	res := annotations.FromWireFormat(got.Content)
	if n := len(res.Document.RecordsForPage(2)); n != 1 {
		t.Errorf("Expected the snapshot to hold 1 record, got %d", n)
	}
}

func TestBridgeSaveFailureIsSilent(t *testing.T) {
	backend := &memoryBackend{storeErr: errors.New("connection refused")}
	bridge := NewBridge(backend)

	bridge.Save(annotations.New(), "A.pdf", Metadata{})
	bridge.Wait()

	if len(backend.saved) != 1 {
		t.Errorf("Expected the save to be attempted once, got %d", len(backend.saved))
	}
}

func TestBridgeLoad(t *testing.T) {
	doc := annotations.New()
	doc.AddRecord(1, annotations.Record{Type: "butt", X: 1, Y: 2, Width: 3, Height: 4})

	tests := []struct {
		name    string
		backend *memoryBackend
		want    int
	}{
		{"found", &memoryBackend{artifacts: map[string]string{"A_annotations.xml": annotations.ToWireFormat(doc)}}, 1},
		{"missing", &memoryBackend{artifacts: map[string]string{}}, 0},
		{"malformed", &memoryBackend{artifacts: map[string]string{"A_annotations.xml": "<annotations><page"}}, 0},
		{"transport failure", &memoryBackend{fetchErr: errors.New("timeout")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBridge(tt.backend).Load(context.Background(), "A.pdf")
			if got == nil {
				t.Fatal("Expected a usable document")
			}
			if n := len(got.RecordsForPage(1)); n != tt.want {
				t.Errorf("Expected %d records, got %d", tt.want, n)
			}
		})
	}
}

func TestHTTPBackend(t *testing.T) {
	var saved SaveRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /annotations", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&saved); err != nil {
			t.Errorf("Failed to decode save request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /themes/uploads/annotations/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "Level 2_annotations.xml" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, saved.Content)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	backend := NewHTTPBackend(server.URL + "/")
	if got, want := backend.ArtifactURL("Level 2_annotations.xml"), server.URL+"/themes/uploads/annotations/Level%202_annotations.xml"; got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	req := SaveRequest{RequestID: "r1", DocumentPath: "Level 2.pdf", ArtifactName: "Level 2_annotations.xml", Content: "<annotations></annotations>", Metadata: Metadata{ProjectID: 9}}
	if err := backend.Store(context.Background(), req); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if diff := cmp.Diff(req, saved); diff != "" {
		t.Errorf("save request mismatch (-want +got):\n%s", diff)
	}

	content, err := backend.Fetch(context.Background(), "Level 2_annotations.xml")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if content != req.Content {
		t.Errorf("Expected %q, got %q", req.Content, content)
	}

	if _, err := backend.Fetch(context.Background(), "other_annotations.xml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestHTTPBackendStoreError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	if err := NewHTTPBackend(server.URL).Store(context.Background(), SaveRequest{}); err == nil {
		t.Error("Expected an error for a failed save")
	}
}

func testBackendRoundTrip(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()

	if _, err := backend.Fetch(ctx, "A_annotations.xml"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before any save, got %v", err)
	}

	for i, content := range []string{"<annotations>v1</annotations>", "<annotations>v2</annotations>"} {
		req := SaveRequest{RequestID: string(rune('a' + i)), ArtifactName: "A_annotations.xml", DocumentPath: "A.pdf", Content: content}
		if err := backend.Store(ctx, req); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	got, err := backend.Fetch(ctx, "A_annotations.xml")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != "<annotations>v2</annotations>" {
		t.Errorf("Expected the latest save, got %q", got)
	}
}

func TestFileBackend(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "annotations"))
	if err != nil {
		t.Fatal(err)
	}
	testBackendRoundTrip(t, backend)
}

func TestSQLiteBackend(t *testing.T) {
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "annotations.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	testBackendRoundTrip(t, backend)

	history, err := backend.History(context.Background(), "A_annotations.xml")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 revisions, got %d", len(history))
	}
	if history[0].RequestID != "a" || history[1].RequestID != "b" {
		t.Errorf("Expected revisions oldest first, got %q then %q", history[0].RequestID, history[1].RequestID)
	}
	if history[1].Bytes != len("<annotations>v2</annotations>") {
		t.Errorf("Unexpected size %d", history[1].Bytes)
	}
}

func TestSQLiteBackendAssignsMissingRequestIDs(t *testing.T) {
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), "annotations.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	ctx := context.Background()
	for _, content := range []string{"<annotations>v1</annotations>", "<annotations>v2</annotations>"} {
		req := SaveRequest{ArtifactName: "A_annotations.xml", DocumentPath: "A.pdf", Content: content}
		if err := backend.Store(ctx, req); err != nil {
			t.Fatalf("Store without a request id failed: %v", err)
		}
	}

	history, err := backend.History(ctx, "A_annotations.xml")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 revisions, got %d", len(history))
	}
	if history[0].RequestID == "" || history[0].RequestID == history[1].RequestID {
		t.Errorf("Expected distinct generated ids, got %q and %q", history[0].RequestID, history[1].RequestID)
	}
}

// gatedBackend holds saves of one artifact until release is closed.
type gatedBackend struct {
	memoryBackend
	gated   string
	release chan struct{}
}

func (g *gatedBackend) Store(ctx context.Context, req SaveRequest) error {
	if req.ArtifactName == g.gated {
		<-g.release
	}
	return g.memoryBackend.Store(ctx, req)
}

func TestBridgeWaitForIgnoresOtherDocuments(t *testing.T) {
	backend := &gatedBackend{gated: "B_annotations.xml", release: make(chan struct{})}
	bridge := NewBridge(backend)

	bridge.Save(annotations.New(), "plans/B.pdf", Metadata{})
	bridge.Save(annotations.New(), "plans/A.pdf", Metadata{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bridge.WaitFor(ctx, "plans/A.pdf"); err != nil {
		t.Fatalf("Expected A's saves to finish while B is blocked, got %v", err)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	if err := bridge.WaitFor(short, "plans/B.pdf"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected B's wait to time out, got %v", err)
	}

	close(backend.release)
	bridge.Wait()
	if n := len(backend.saved); n != 2 {
		t.Errorf("Expected both saves stored, got %d", n)
	}
}

func TestBridgeWaitForDuringConcurrentSaves(t *testing.T) {
	bridge := NewBridge(&memoryBackend{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bridge.Save(annotations.New(), "plans/B.pdf", Metadata{})
			}
		}()
	}
	for i := 0; i < 50; i++ {
		bridge.Save(annotations.New(), "plans/A.pdf", Metadata{})
		if err := bridge.WaitFor(context.Background(), "plans/A.pdf"); err != nil {
			t.Fatalf("WaitFor failed: %v", err)
		}
		bridge.Wait()
	}
	wg.Wait()
	bridge.Wait()

	if n := len(bridge.inflight("")); n != 0 {
		t.Errorf("Expected no saves in flight, got %d", n)
	}
}
