// Package testutil provides an in-memory StoryTracker for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/steveyegge/git-start/internal/tracker"
	"github.com/steveyegge/git-start/internal/types"
)

// RecordedSearch stores the arguments of one SearchStories call.
type RecordedSearch struct {
	ProjectID int64
	Query     string
	Limit     int
	Offset    int
}

// RecordedUpdate stores the arguments of one UpdateStory call.
type RecordedUpdate struct {
	ProjectID int64
	StoryID   int64
	Update    types.StoryUpdate
}

// FakeTracker serves Stories in order and pages them by limit/offset.
// Every call is recorded for assertions.
type FakeTracker struct {
	mu sync.Mutex

	// Stories is the full, ordered result set returned for any query.
	Stories []types.StorySummary
	// SearchErr, when set, is returned by SearchStories.
	SearchErr error
	// UpdateErr, when set, is returned by UpdateStory.
	UpdateErr error

	searches []RecordedSearch
	updates  []RecordedUpdate
}

var _ tracker.StoryTracker = (*FakeTracker)(nil)

// NewFakeTracker creates a fake serving the given stories.
func NewFakeTracker(stories ...types.StorySummary) *FakeTracker {
	return &FakeTracker{Stories: stories}
}

func (f *FakeTracker) Name() string        { return "fake" }
func (f *FakeTracker) DisplayName() string { return "Fake Tracker" }

// SearchStories returns Stories[offset:offset+limit].
func (f *FakeTracker) SearchStories(_ context.Context, projectID int64, query string, limit, offset int) (tracker.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searches = append(f.searches, RecordedSearch{ProjectID: projectID, Query: query, Limit: limit, Offset: offset})
	if f.SearchErr != nil {
		return tracker.Page{}, f.SearchErr
	}

	start := min(offset, len(f.Stories))
	end := len(f.Stories)
	if limit > 0 {
		end = min(start+limit, len(f.Stories))
	}

	page := make([]types.StorySummary, end-start)
	copy(page, f.Stories[start:end])
	return tracker.Page{
		Stories: page,
		Offset:  offset,
		Total:   len(f.Stories),
		HasMore: end < len(f.Stories),
	}, nil
}

// UpdateStory records the update.
func (f *FakeTracker) UpdateStory(_ context.Context, projectID, storyID int64, update types.StoryUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates = append(f.updates, RecordedUpdate{ProjectID: projectID, StoryID: storyID, Update: update})
	return f.UpdateErr
}

// Searches returns a copy of the recorded searches.
func (f *FakeTracker) Searches() []RecordedSearch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedSearch(nil), f.searches...)
}

// Updates returns a copy of the recorded updates.
func (f *FakeTracker) Updates() []RecordedUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedUpdate(nil), f.updates...)
}
