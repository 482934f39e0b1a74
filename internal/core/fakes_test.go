// ABOUTME: Test doubles shared by the core package tests
// ABOUTME: In-memory index, fake model clients, a manual clock and a recording observer
package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harper/folio/internal/llm"
	"github.com/harper/folio/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memIndex is an in-memory ChunkIndex that records writes
type memIndex struct {
	mu        sync.Mutex
	rows      map[string]models.IndexedChunk
	nextID    int
	addCalls  int
	delCalls  int
	addErr    error
	deleteErr error
}

func newMemIndex() *memIndex {
	return &memIndex{rows: make(map[string]models.IndexedChunk)}
}

func (m *memIndex) Add(_ context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls++
	if m.addErr != nil {
		return m.addErr
	}
	for _, c := range chunks {
		m.nextID++
		id := fmt.Sprintf("id-%05d", m.nextID)
		m.rows[id] = models.IndexedChunk{ID: id, Chunk: c}
	}
	return nil
}

func (m *memIndex) QueryBySource(_ context.Context, source string) ([]string, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids, fps []string
	for _, id := range m.sortedIDs() {
		if r := m.rows[id]; r.Chunk.Source == source {
			ids = append(ids, id)
			fps = append(fps, r.Chunk.Fingerprint)
		}
	}
	return ids, fps, nil
}

func (m *memIndex) DeleteByIDs(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, id := range ids {
		delete(m.rows, id)
	}
	return nil
}

func (m *memIndex) idsFor(source string) []string {
	ids, _, _ := m.QueryBySource(context.Background(), source)
	return ids
}

func (m *memIndex) sortedIDs() []string {
	ids := make([]string, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fakeRetriever returns fixed documents
type fakeRetriever struct {
	docs  []string
	err   error
	block bool
	calls int
	lastK int
	lastQ string
}

func (r *fakeRetriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	r.calls++
	r.lastK = k
	r.lastQ = query
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.docs, r.err
}

// fakeCompleter records the messages it was sent
type fakeCompleter struct {
	answer      string
	err         error
	calls       int
	messages    []llm.Message
	temperature float32
}

func (c *fakeCompleter) Complete(_ context.Context, messages []llm.Message, temperature float32) (string, error) {
	c.calls++
	c.messages = messages
	c.temperature = temperature
	return c.answer, c.err
}

func newTestPipeline(r *fakeRetriever, c *fakeCompleter, chatKey, embedKey string) *Pipeline {
	return NewPipeline(PipelineConfig{
		ChatAPIKey:      chatKey,
		EmbeddingAPIKey: embedKey,
		Retriever:       func() (Retriever, error) { return r, nil },
		Completer:       func() (Completer, error) { return c, nil },
		StageTimeout:    time.Second,
	})
}

// recordingObserver counts observations
type recordingObserver struct {
	mu       sync.Mutex
	stages   []string
	outcomes []string
	ingests  []models.IngestStats
}

func (o *recordingObserver) ObserveStage(stage string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		stage += ":error"
	}
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) ObserveChat(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) ObserveIngest(stats models.IngestStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ingests = append(o.ingests, stats)
}

func chunksFor(source, fingerprint string, contents ...string) []models.Chunk {
	out := make([]models.Chunk, len(contents))
	for i, c := range contents {
		out[i] = models.Chunk{Content: c, Source: source, Fingerprint: fingerprint}
	}
	return out
}
