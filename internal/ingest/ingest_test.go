package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-labs/lectern/internal/index"
	"github.com/lectern-labs/lectern/internal/ingest"
	"github.com/lectern-labs/lectern/pkg/lifecycle"
	"github.com/lectern-labs/lectern/pkg/pagination"
	"github.com/lectern-labs/lectern/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeIndex struct {
	mu      sync.Mutex
	papers  map[string]*index.Paper
	touched []uuid.UUID

	createErr  error
	raceWinner *index.Paper
	created    []index.CreateCommand
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{papers: make(map[string]*index.Paper)}
}

func (f *fakeIndex) FindByHash(ctx context.Context, hash string) (*index.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.papers[hash]; ok {
		return p, nil
	}
	return nil, index.ErrNotFound
}

func (f *fakeIndex) Find(ctx context.Context, id uuid.UUID) (*index.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.papers {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, index.ErrNotFound
}

func (f *fakeIndex) Latest(ctx context.Context) (*index.Paper, error) {
	return nil, index.ErrEmpty
}

func (f *fakeIndex) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[index.Paper], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var papers []index.Paper
	for _, p := range f.papers {
		papers = append(papers, *p)
	}
	result := pagination.NewPageResult(papers, len(papers), 1, 20)
	return &result, nil
}

func (f *fakeIndex) Create(ctx context.Context, cmd index.CreateCommand) (*index.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, cmd)
	if f.raceWinner != nil {
		f.raceWinner.ContentHash = cmd.ContentHash
		f.papers[cmd.ContentHash] = f.raceWinner
		return nil, index.ErrDuplicate
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.papers[cmd.ContentHash]; ok {
		return nil, index.ErrDuplicate
	}

	chunks := 0
	for _, parent := range cmd.Parents {
		chunks += len(parent.Children)
	}
	p := &index.Paper{
		ID:          uuid.New(),
		ContentHash: cmd.ContentHash,
		Filename:    cmd.Filename,
		SizeBytes:   cmd.SizeBytes,
		PageCount:   cmd.PageCount,
		StorageKey:  cmd.StorageKey,
		ChunkCount:  chunks,
		IngestedAt:  time.Now(),
	}
	f.papers[cmd.ContentHash] = p
	return p, nil
}

func (f *fakeIndex) Touch(ctx context.Context, id uuid.UUID) (*index.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	for _, p := range f.papers {
		if p.ID == id {
			refreshed := *p
			refreshed.IngestedAt = time.Now()
			return &refreshed, nil
		}
	}
	return nil, index.ErrNotFound
}

func (f *fakeIndex) Search(ctx context.Context, paperID uuid.UUID, vector []float32, k int) ([]workflow.Chunk, error) {
	return nil, nil
}

type fakeParse struct {
	elements []workflow.Element
	err      error

	mu    sync.Mutex
	calls int
}

func (f *fakeParse) Parse(ctx context.Context, pdf io.Reader, name string) ([]workflow.Element, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.elements, f.err
}

type fakeRender struct {
	pages int
	err   error
}

func (f *fakeRender) Pages(ctx context.Context, pdfPath, hash string) (int, error) {
	return f.pages, f.err
}

type fakeEmbedding struct{}

func (fakeEmbedding) Dimensions() int { return 3 }

func (fakeEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeStorage struct {
	mu       sync.Mutex
	uploads  map[string][]byte
	deletes  []string
	failNext bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: make(map[string][]byte)}
}

func (f *fakeStorage) Start(lc *lifecycle.Coordinator) error { return nil }

func (f *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("storage unavailable")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.uploads[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	delete(f.uploads, key)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.uploads[key]
	return ok, nil
}

func newSystem(t *testing.T, idx *fakeIndex, parser *fakeParse, renderer *fakeRender, store *fakeStorage) ingest.System {
	t.Helper()

	sys, err := ingest.New(
		idx,
		parser,
		renderer,
		fakeEmbedding{},
		store,
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		testLogger(),
	)
	if err != nil {
		t.Fatalf("ingest system: %v", err)
	}
	return sys
}

func TestIngestCreatesPaper(t *testing.T) {
	idx := newFakeIndex()
	parser := &fakeParse{elements: []workflow.Element{
		{Page: 1, Kind: workflow.ElementText, Text: "Section one content."},
		{Page: 2, Kind: workflow.ElementTable, Text: ""},
	}}
	store := newFakeStorage()

	sys := newSystem(t, idx, parser, &fakeRender{pages: 7}, store)

	data := []byte("%PDF-1.4 test document")
	res, err := sys.Ingest(context.Background(), "paper.pdf", data, 3)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if !res.Created {
		t.Error("created: got false, want true")
	}
	if res.Paper.Filename != "paper.pdf" {
		t.Errorf("filename: got %s", res.Paper.Filename)
	}
	// Rendering refines the caller-provided page count.
	if res.Paper.PageCount != 7 {
		t.Errorf("page count: got %d, want 7", res.Paper.PageCount)
	}
	if res.Paper.SizeBytes != int64(len(data)) {
		t.Errorf("size: got %d, want %d", res.Paper.SizeBytes, len(data))
	}
	if res.Paper.ChunkCount == 0 {
		t.Error("chunk count: got 0")
	}

	if _, ok := store.uploads[ingest.SourceKey(res.Paper.ContentHash)]; !ok {
		t.Error("source pdf was not uploaded")
	}

	if len(idx.created) != 1 {
		t.Fatalf("create commands: got %d, want 1", len(idx.created))
	}
	cmd := idx.created[0]
	if cmd.StorageKey != ingest.SourceKey(cmd.ContentHash) {
		t.Errorf("storage key: got %s", cmd.StorageKey)
	}
	if len(cmd.Parents) != 2 {
		t.Fatalf("parents: got %d, want 2", len(cmd.Parents))
	}
	// The text-less table element became a placeholder chunk.
	if cmd.Parents[1].Content != "[표 - 페이지 2]" {
		t.Errorf("table placeholder: got %q", cmd.Parents[1].Content)
	}
	for i, parent := range cmd.Parents {
		for j, child := range parent.Children {
			if len(child.Vector) != 3 {
				t.Errorf("parent %d child %d: vector %v", i, j, child.Vector)
			}
		}
	}
}

func TestIngestDuplicateRefreshes(t *testing.T) {
	idx := newFakeIndex()
	parser := &fakeParse{elements: []workflow.Element{
		{Page: 1, Kind: workflow.ElementText, Text: "content"},
	}}
	store := newFakeStorage()
	sys := newSystem(t, idx, parser, &fakeRender{pages: 1}, store)

	data := []byte("%PDF-1.4 duplicate")
	first, err := sys.Ingest(context.Background(), "paper.pdf", data, 1)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	second, err := sys.Ingest(context.Background(), "renamed.pdf", data, 1)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if second.Created {
		t.Error("created: got true, want false")
	}
	if second.Paper.ID != first.Paper.ID {
		t.Errorf("paper id: got %s, want %s", second.Paper.ID, first.Paper.ID)
	}
	if len(idx.touched) != 1 || idx.touched[0] != first.Paper.ID {
		t.Errorf("touched: %v", idx.touched)
	}
	if parser.calls != 1 {
		t.Errorf("parse calls: got %d, want 1", parser.calls)
	}
}

func TestIngestEmptyUpload(t *testing.T) {
	sys := newSystem(t, newFakeIndex(), &fakeParse{}, &fakeRender{}, newFakeStorage())

	_, err := sys.Ingest(context.Background(), "empty.pdf", nil, 0)
	if !errors.Is(err, ingest.ErrEmptyUpload) {
		t.Errorf("got %v, want ErrEmptyUpload", err)
	}
}

func TestIngestParseFailureCompensates(t *testing.T) {
	idx := newFakeIndex()
	parser := &fakeParse{err: workflow.ErrParseFailed}
	store := newFakeStorage()
	sys := newSystem(t, idx, parser, &fakeRender{pages: 2}, store)

	_, err := sys.Ingest(context.Background(), "paper.pdf", []byte("%PDF-1.4 bad"), 2)
	if !errors.Is(err, workflow.ErrParseFailed) {
		t.Fatalf("got %v, want ErrParseFailed", err)
	}

	if len(store.deletes) != 1 {
		t.Fatalf("compensating deletes: got %d, want 1", len(store.deletes))
	}
	if len(store.uploads) != 0 {
		t.Errorf("blobs left behind: %v", store.uploads)
	}
	if len(idx.created) != 0 {
		t.Errorf("paper registered despite failure")
	}
}

func TestIngestDuplicateRaceResolves(t *testing.T) {
	idx := newFakeIndex()
	parser := &fakeParse{elements: []workflow.Element{
		{Page: 1, Kind: workflow.ElementText, Text: "content"},
	}}
	store := newFakeStorage()
	sys := newSystem(t, idx, parser, &fakeRender{pages: 1}, store)

	// Simulate losing the insert race: Create conflicts, and the winner's
	// entry is already committed by the time FindByHash retries.
	winner := &index.Paper{ID: uuid.New(), Filename: "winner.pdf"}
	idx.raceWinner = winner

	res, err := sys.Ingest(context.Background(), "paper.pdf", []byte("%PDF-1.4 raced"), 1)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Paper.ID != winner.ID {
		t.Errorf("paper: got %s, want the committed winner", res.Paper.ID)
	}
}

func TestPapersDelegatesToIndex(t *testing.T) {
	idx := newFakeIndex()
	idx.papers["hash"] = &index.Paper{ID: uuid.New(), Filename: "existing.pdf"}

	sys := newSystem(t, idx, &fakeParse{}, &fakeRender{}, newFakeStorage())

	result, err := sys.Papers(context.Background(), pagination.PageRequest{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("papers: %v", err)
	}
	if result.Total != 1 || len(result.Data) != 1 {
		t.Errorf("result: %+v", result)
	}
}
