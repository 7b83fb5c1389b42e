package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cardpress/internal/generation"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

type fakeItemStore struct {
	item *models.Item
}

func (f *fakeItemStore) GetByID(_ context.Context, id string) (*models.Item, error) {
	if f.item == nil || f.item.ID != id {
		return nil, models.ErrNotFound
	}
	copied := *f.item
	return &copied, nil
}

type fakeSectionStore struct {
	mu       sync.Mutex
	sections []models.Section
	version  int
}

func (f *fakeSectionStore) ListByItem(context.Context, string) ([]models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.CloneSections(f.sections), nil
}

func (f *fakeSectionStore) Replace(_ context.Context, _ string, _ int, sections []models.Section) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = models.CloneSections(sections)
	f.version++
	return f.version, nil
}

type stubGenerator struct {
	mu     sync.Mutex
	result *generation.ChatResult
	err    error
	block  chan struct{}
	calls  int
	lastRq generation.ChatRequest
}

func (s *stubGenerator) Summarize(context.Context, string, string) (*generation.SummaryResult, error) {
	return nil, models.ErrGenerationFailed
}

func (s *stubGenerator) GenerateSections(context.Context, string, string, int) ([]generation.SectionDraft, error) {
	return nil, models.ErrGenerationFailed
}

func (s *stubGenerator) Chat(_ context.Context, req generation.ChatRequest) (*generation.ChatResult, error) {
	s.mu.Lock()
	s.calls++
	s.lastRq = req
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func generatedItem() *models.Item {
	return &models.Item{ID: "item-1", Status: models.ItemGenerated, Version: 3}
}

func threeSections() []models.Section {
	return []models.Section{
		{ID: "s1", ItemID: "item-1", Position: 0, Kind: models.KindOpening, Body: "one", Style: models.DefaultStyle(models.KindOpening)},
		{ID: "s2", ItemID: "item-1", Position: 1, Kind: models.KindBody, Body: "two", Style: models.DefaultStyle(models.KindBody)},
		{ID: "s3", ItemID: "item-1", Position: 2, Kind: models.KindClosing, Body: "three", Style: models.DefaultStyle(models.KindClosing)},
	}
}

func TestApplyMutatingEditThenUndo(t *testing.T) {
	items := &fakeItemStore{item: generatedItem()}
	sections := &fakeSectionStore{sections: threeSections()}
	gen := &stubGenerator{result: &generation.ChatResult{
		Reply:       "Merged them.",
		ActionTaken: "merged sections 2 and 3",
		Sections: []generation.SectionDraft{
			{Kind: models.KindOpening, Body: "one"},
			{Kind: models.KindClosing, Body: "two three"},
		},
	}}

	engine := NewEngine(items, sections, gen, logger.NewNopLogger())
	original := models.CloneSections(sections.sections)

	resp, err := engine.Apply(context.Background(), "item-1", "merge card 2 and 3")
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Equal(t, "Merged them.", resp.Reply)
	require.Len(t, resp.Sections, 2)
	assert.Len(t, sections.sections, 2)

	restored, err := engine.Undo(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	assert.Equal(t, original, sections.sections)

	// Single-level undo: a second consecutive undo has no snapshot.
	_, err = engine.Undo(context.Background(), "item-1")
	assert.True(t, errors.Is(err, models.ErrNothingToUndo))
}

func TestApplyConversationalNoChange(t *testing.T) {
	items := &fakeItemStore{item: generatedItem()}
	sections := &fakeSectionStore{sections: threeSections()}
	gen := &stubGenerator{result: &generation.ChatResult{
		Reply:       "There are three sections.",
		ActionTaken: "no changes",
	}}

	engine := NewEngine(items, sections, gen, logger.NewNopLogger())
	resp, err := engine.Apply(context.Background(), "item-1", "how many sections are there?")
	require.NoError(t, err)

	assert.False(t, resp.Changed)
	assert.Nil(t, resp.Sections)
	assert.Len(t, sections.sections, 3)

	// A question still captures a snapshot; undoing it is a no-op restore.
	restored, err := engine.Undo(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Len(t, restored, 3)
	assert.Len(t, sections.sections, 3)
}

func TestUndoAfterConversationalTurnKeepsEdit(t *testing.T) {
	items := &fakeItemStore{item: generatedItem()}
	sections := &fakeSectionStore{sections: threeSections()}
	gen := &stubGenerator{result: &generation.ChatResult{
		Reply:       "Merged them.",
		ActionTaken: "merged sections 2 and 3",
		Sections: []generation.SectionDraft{
			{Kind: models.KindOpening, Body: "one"},
			{Kind: models.KindClosing, Body: "two three"},
		},
	}}

	engine := NewEngine(items, sections, gen, logger.NewNopLogger())
	_, err := engine.Apply(context.Background(), "item-1", "merge card 2 and 3")
	require.NoError(t, err)
	require.Len(t, sections.sections, 2)

	// A reply-only turn overwrites the snapshot with the current batch, so
	// undo must not revert the accepted merge.
	gen.result = &generation.ChatResult{Reply: "Two sections.", ActionTaken: "no changes"}
	_, err = engine.Apply(context.Background(), "item-1", "how many sections now?")
	require.NoError(t, err)

	restored, err := engine.Undo(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Len(t, restored, 2)
	assert.Len(t, sections.sections, 2)
}

func TestApplyNotEditable(t *testing.T) {
	item := generatedItem()
	item.Status = models.ItemDiscovered
	engine := NewEngine(&fakeItemStore{item: item}, &fakeSectionStore{}, &stubGenerator{}, logger.NewNopLogger())

	_, err := engine.Apply(context.Background(), "item-1", "do something")
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestConcurrentApplyRejected(t *testing.T) {
	items := &fakeItemStore{item: generatedItem()}
	sections := &fakeSectionStore{sections: threeSections()}
	block := make(chan struct{})
	gen := &stubGenerator{
		block:  block,
		result: &generation.ChatResult{Reply: "ok", ActionTaken: "no changes"},
	}

	engine := NewEngine(items, sections, gen, logger.NewNopLogger())

	done := make(chan error, 1)
	go func() {
		_, err := engine.Apply(context.Background(), "item-1", "first")
		done <- err
	}()

	require.Eventually(t, func() bool {
		gen.mu.Lock()
		defer gen.mu.Unlock()
		return gen.calls == 1
	}, time.Second, 5*time.Millisecond)

	_, err := engine.Apply(context.Background(), "item-1", "second")
	assert.True(t, errors.Is(err, models.ErrAlreadyInProgress))

	close(block)
	require.NoError(t, <-done)
}

func TestHistoryTrimmed(t *testing.T) {
	items := &fakeItemStore{item: generatedItem()}
	sections := &fakeSectionStore{sections: threeSections()}
	gen := &stubGenerator{result: &generation.ChatResult{Reply: "ok", ActionTaken: "no changes"}}

	engine := NewEngine(items, sections, gen, logger.NewNopLogger())
	for i := 0; i < 8; i++ {
		_, err := engine.Apply(context.Background(), "item-1", "question")
		require.NoError(t, err)
	}

	// The prompt carries at most the trimmed history.
	_, err := engine.Apply(context.Background(), "item-1", "final")
	require.NoError(t, err)
	assert.Len(t, gen.lastRq.History, maxHistoryTurns)
}

func TestForgetDropsState(t *testing.T) {
	items := &fakeItemStore{item: generatedItem()}
	sections := &fakeSectionStore{sections: threeSections()}
	gen := &stubGenerator{result: &generation.ChatResult{
		Reply:       "done",
		ActionTaken: "rewrote",
		Sections:    []generation.SectionDraft{{Kind: models.KindOpening, Body: "new"}},
	}}

	engine := NewEngine(items, sections, gen, logger.NewNopLogger())
	_, err := engine.Apply(context.Background(), "item-1", "rewrite")
	require.NoError(t, err)

	engine.Forget("item-1")
	_, err = engine.Undo(context.Background(), "item-1")
	assert.True(t, errors.Is(err, models.ErrNothingToUndo))
}
