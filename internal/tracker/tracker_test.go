package tracker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/git-start/internal/tracker"
	"github.com/steveyegge/git-start/internal/tracker/testutil"
	"github.com/steveyegge/git-start/internal/types"
)

func stories(n int) []types.StorySummary {
	out := make([]types.StorySummary, n)
	for i := range out {
		out[i] = types.StorySummary{ID: int64(100 + i), Type: types.TypeFeature, Title: "story"}
	}
	return out
}

func TestPageNextOffset(t *testing.T) {
	p := tracker.Page{Stories: stories(3), Offset: 10}
	assert.Equal(t, 13, p.NextOffset())
}

func TestWrapTrackerDisabledReturnsInner(t *testing.T) {
	t.Setenv("GIT_START_OTEL_ENABLED", "")
	fake := testutil.NewFakeTracker()
	assert.Same(t, fake, tracker.WrapTracker(fake))
}

func TestWrapTrackerEnabledDelegates(t *testing.T) {
	t.Setenv("GIT_START_OTEL_ENABLED", "true")
	fake := testutil.NewFakeTracker(stories(5)...)
	wrapped := tracker.WrapTracker(fake)

	_, isInstrumented := wrapped.(*tracker.InstrumentedTracker)
	require.True(t, isInstrumented)
	assert.Equal(t, "fake", wrapped.Name())

	page, err := wrapped.SearchStories(context.Background(), 7, "state:unstarted", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Stories, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(102), page.Stories[0].ID)

	fake.UpdateErr = errors.New("boom")
	err = wrapped.UpdateStory(context.Background(), 7, 102, types.StoryUpdate{State: types.StateStarted, Owner: "me"})
	assert.EqualError(t, err, "boom")
	assert.Len(t, fake.Updates(), 1)
}

func TestFakeTrackerPaging(t *testing.T) {
	fake := testutil.NewFakeTracker(stories(3)...)

	page, err := fake.SearchStories(context.Background(), 1, "q", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Stories, 2)
	assert.True(t, page.HasMore)

	page, err = fake.SearchStories(context.Background(), 1, "q", 2, page.NextOffset())
	require.NoError(t, err)
	assert.Len(t, page.Stories, 1)
	assert.False(t, page.HasMore)

	page, err = fake.SearchStories(context.Background(), 1, "q", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Stories)
	assert.Equal(t, []testutil.RecordedSearch{
		{ProjectID: 1, Query: "q", Limit: 2, Offset: 0},
		{ProjectID: 1, Query: "q", Limit: 2, Offset: 2},
		{ProjectID: 1, Query: "q", Limit: 2, Offset: 10},
	}, fake.Searches())
}
