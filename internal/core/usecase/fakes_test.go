package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubEmbedder struct {
	queryVector []float32
	queryErr    error
	embedErr    error
	shortEmbed  bool // return one vector fewer than requested
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	n := len(texts)
	if s.shortEmbed && n > 0 {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{0.5}
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.queryVector == nil {
		return []float32{0.5}, nil
	}
	return s.queryVector, nil
}

func (s *stubEmbedder) Model() string { return "test-embed" }

type stubIndex struct {
	keyword  []domain.EvidenceItem
	semantic []domain.EvidenceItem

	keywordErr  error
	semanticErr error

	indexed []domain.DocumentChunk
}

func (s *stubIndex) IndexChunks(_ context.Context, chunks []domain.DocumentChunk) error {
	s.indexed = append(s.indexed, chunks...)
	return nil
}

func (s *stubIndex) SearchSemantic(context.Context, string, []float32, int) ([]domain.EvidenceItem, error) {
	return s.semantic, s.semanticErr
}

func (s *stubIndex) SearchKeyword(context.Context, string, string, int) ([]domain.EvidenceItem, error) {
	return s.keyword, s.keywordErr
}

func (s *stubIndex) DeleteCase(context.Context, string) error { return nil }

type memSnapshotStore struct {
	mu    sync.Mutex
	byID  map[string]*domain.LegalSnapshot
	byURL map[string]*domain.LegalSnapshot
	puts  int
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{
		byID:  make(map[string]*domain.LegalSnapshot),
		byURL: make(map[string]*domain.LegalSnapshot),
	}
}

func (m *memSnapshotStore) Put(_ context.Context, snap *domain.LegalSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	copied := *snap
	m.byID[snap.ID] = &copied
	m.byURL[snap.URL] = &copied
	return nil
}

func (m *memSnapshotStore) GetByID(_ context.Context, id string) (*domain.LegalSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap, ok := m.byID[id]; ok {
		copied := *snap
		return &copied, nil
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get snapshot", fmt.Errorf("id %s", id))
}

func (m *memSnapshotStore) GetByURL(_ context.Context, url string) (*domain.LegalSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap, ok := m.byURL[url]; ok {
		copied := *snap
		return &copied, nil
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get snapshot", fmt.Errorf("url %s", url))
}

type countingFetcher struct {
	mu      sync.Mutex
	fetches int
	text    string
	err     error
	block   chan struct{} // optional gate to hold fetches open
}

func (f *countingFetcher) Fetch(_ context.Context, url string) (*domain.LegalSnapshot, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}

	text := f.text
	if text == "" {
		text = "Statutory redundancy pay depends on age and length of service."
	}
	return &domain.LegalSnapshot{
		ID:          domain.SnapshotIDForURL(url),
		URL:         url,
		Domain:      "www.gov.uk",
		Title:       "Redundancy: your rights",
		Text:        text,
		ContentHash: domain.HashContent(text),
	}, nil
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type stubSearcher struct {
	hits []domain.LegalSearchHit
	err  error
}

func (s *stubSearcher) Search(context.Context, string, int) ([]domain.LegalSearchHit, error) {
	return s.hits, s.err
}

type memChunkRepo struct {
	chunks map[string]*domain.DocumentChunk
}

func newMemChunkRepo() *memChunkRepo {
	return &memChunkRepo{chunks: make(map[string]*domain.DocumentChunk)}
}

func (m *memChunkRepo) InsertChunks(_ context.Context, chunks []domain.DocumentChunk) error {
	for i := range chunks {
		copied := chunks[i]
		m.chunks[copied.ChunkID] = &copied
	}
	return nil
}

func (m *memChunkRepo) GetChunk(_ context.Context, caseID, chunkID string) (*domain.DocumentChunk, error) {
	chunk, ok := m.chunks[chunkID]
	if !ok || chunk.CaseID != caseID {
		return nil, domain.WrapError(domain.ErrNotFound, "get chunk", fmt.Errorf("chunk %s", chunkID))
	}
	copied := *chunk
	return &copied, nil
}

func (m *memChunkRepo) DeleteCase(_ context.Context, caseID string) error {
	for id, chunk := range m.chunks {
		if chunk.CaseID == caseID {
			delete(m.chunks, id)
		}
	}
	return nil
}

type memSessionStore struct {
	mu    sync.Mutex
	saved map[string]*domain.SessionState
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{saved: make(map[string]*domain.SessionState)}
}

func (m *memSessionStore) Load(_ context.Context, caseID string) (*domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.saved[caseID]; ok {
		copied := *state
		return &copied, nil
	}
	return domain.NewSessionState(caseID), nil
}

func (m *memSessionStore) Save(_ context.Context, state *domain.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.saved[state.CaseID] = &copied
	return nil
}

// scriptedGenerator returns its responses in order; the last one repeats once
// the script runs out.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	err       error
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.prompts = append(g.prompts, prompt)
	if len(g.responses) == 0 {
		return "", fmt.Errorf("scripted generator exhausted")
	}
	response := g.responses[0]
	if len(g.responses) > 1 {
		g.responses = g.responses[1:]
	}
	return response, nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type recordingMetrics struct {
	mu       sync.Mutex
	finished []domain.AnswerState
	attempts []int
	reasons  []domain.ValidationReason
	hits     int
	misses   int
}

func (m *recordingMetrics) AnswerFinished(state domain.AnswerState, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, state)
	m.attempts = append(m.attempts, attempts)
}

func (m *recordingMetrics) CitationFailure(reason domain.ValidationReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasons = append(m.reasons, reason)
}

func (m *recordingMetrics) SnapshotCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *recordingMetrics) SnapshotCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

type memDocumentRepo struct {
	mu          sync.Mutex
	docs        map[string]*domain.Document
	transitions map[string][]domain.DocumentStatus
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{
		docs:        make(map[string]*domain.Document),
		transitions: make(map[string][]domain.DocumentStatus),
	}
}

func (m *memDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.docs[doc.ID] = &copied
	m.transitions[doc.ID] = append(m.transitions[doc.ID], doc.Status)
	return nil
}

func (m *memDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id %s", id))
	}
	copied := *doc
	return &copied, nil
}

func (m *memDocumentRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update status", fmt.Errorf("id %s", id))
	}
	doc.Status = status
	doc.Error = errMessage
	m.transitions[id] = append(m.transitions[id], status)
	return nil
}

func (m *memDocumentRepo) SetProcessingResult(_ context.Context, id string, chunkCount int, ocrApplied bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "set processing result", fmt.Errorf("id %s", id))
	}
	doc.ChunkCount = chunkCount
	doc.OCRApplied = ocrApplied
	return nil
}

func (m *memDocumentRepo) statusLog(id string) []domain.DocumentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DocumentStatus(nil), m.transitions[id]...)
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Save(_ context.Context, key string, data io.Reader) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = raw
	return nil
}

func (m *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open object", fmt.Errorf("key %s", key))
	}
	return io.NopCloser(strings.NewReader(string(raw))), nil
}

type queueEvent struct {
	caseID     string
	documentID string
}

type memQueue struct {
	mu         sync.Mutex
	published  []queueEvent
	publishErr error
}

func (q *memQueue) PublishDocumentIngested(_ context.Context, caseID, documentID string) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, queueEvent{caseID: caseID, documentID: documentID})
	return nil
}

func (q *memQueue) SubscribeDocumentIngested(context.Context, func(ctx context.Context, caseID, documentID string) error) error {
	return nil
}

type stubExtractor struct {
	sections []domain.Section
	err      error
}

func (s *stubExtractor) Extract(context.Context, *domain.Document) ([]domain.Section, error) {
	return s.sections, s.err
}

// stubChunker yields one span per blank-line paragraph, keeping the paragraph
// index so provenance assertions stay meaningful.
type stubChunker struct{}

func (stubChunker) Split(text string) []ports.ChunkSpan {
	var spans []ports.ChunkSpan
	for i, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		spans = append(spans, ports.ChunkSpan{Text: part, Paragraph: i})
	}
	return spans
}
