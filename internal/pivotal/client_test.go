package pivotal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/git-start/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("tok").
		WithEndpoint(srv.URL).
		WithHTTPClient(srv.Client()).
		WithBackOff(func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, MaxRetries)
		})
}

func TestSearchStories(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/projects/99/stories", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-TrackerToken"))
		q := r.URL.Query()
		assert.Equal(t, "label:x state:unstarted", q.Get("filter"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "20", q.Get("offset"))

		w.Header().Set("X-Tracker-Pagination-Total", "35")
		w.Header().Set("X-Tracker-Pagination-Offset", "20")
		w.Header().Set("X-Tracker-Pagination-Limit", "10")
		w.Header().Set("X-Tracker-Pagination-Returned", "2")
		_ = json.NewEncoder(w).Encode([]Story{
			{ID: 2, Name: "Second", StoryType: "bug", CurrentState: "unstarted", Labels: []Label{{Name: "x"}}},
			{ID: 1, Name: "First", StoryType: "feature", CurrentState: "unstarted"},
		})
	})

	stories, pg, err := client.SearchStories(context.Background(), 99, "label:x state:unstarted", 10, 20)
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, int64(2), stories[0].ID, "order must be preserved")
	assert.Equal(t, "x", stories[0].Labels[0].Name)
	assert.Equal(t, Pagination{Total: 35, Offset: 20, Limit: 10, Returned: 2}, pg)
	assert.True(t, pg.HasMore())
}

func TestSearchStoriesWithoutPaginationHeaders(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":5,"name":"Only","story_type":"chore","current_state":"planned"}]`)
	})

	stories, pg, err := client.SearchStories(context.Background(), 1, "id:5", 10, 0)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, 0, pg.Offset)
	assert.Equal(t, 1, pg.Returned)
	assert.False(t, pg.HasMore())
}

func TestSearchStoriesRejectsBadLimit(t *testing.T) {
	t.Parallel()

	client := NewClient("tok")
	_, _, err := client.SearchStories(context.Background(), 1, "", 0, 0)
	assert.Error(t, err)
	_, _, err = client.SearchStories(context.Background(), 1, "", MaxPageSize+1, 0)
	assert.Error(t, err)
}

func TestSearchStoriesRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"code":"rate_limited","kind":"error","error":"slow down"}`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	stories, _, err := client.SearchStories(context.Background(), 1, "x", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, stories)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearchStoriesGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := client.SearchStories(context.Background(), 1, "x", 10, 0)
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(MaxRetries+1), calls.Load())
}

func TestSearchStoriesDoesNotRetryAuthFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"invalid_authentication","kind":"error","error":"Invalid authentication credentials were presented."}`)
	})

	_, _, err := client.SearchStories(context.Background(), 1, "x", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid authentication credentials")
	assert.Contains(t, err.Error(), "invalid_authentication")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"unfound_resource","kind":"error","error":"The object you tried to access could not be found."}`)
	})

	_, err := client.ListMemberships(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSearchRetriesDroppedConnection(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if assert.NoError(t, err) {
				_ = conn.Close()
			}
			return
		}
		_ = json.NewEncoder(w).Encode([]Story{{ID: 5, Name: "Retried"}})
	})

	stories, _, err := client.SearchStories(context.Background(), 1, "state:unstarted", 10, 0)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, int64(5), stories[0].ID)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestRetryableStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := &url.Error{Op: "Get", URL: "http://example.invalid", Err: context.Canceled}
	assert.False(t, retryable(ctx, err))
	assert.True(t, retryable(context.Background(), err))
	assert.True(t, retryable(context.Background(), &APIError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, retryable(context.Background(), &APIError{StatusCode: http.StatusForbidden}))
}

func TestUpdateStoryIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	state := "started"
	_, err := client.UpdateStory(context.Background(), 1, 2, &UpdateStoryParams{CurrentState: &state})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMissingToken(t *testing.T) {
	t.Parallel()

	client := NewClient("")
	_, err := client.ListMemberships(context.Background(), 1)
	assert.ErrorContains(t, err, "token not configured")
}

func TestTrackerUpdateStory(t *testing.T) {
	t.Parallel()

	var (
		memberCalls atomic.Int32
		body        map[string]any
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/projects/7/memberships":
			memberCalls.Add(1)
			_ = json.NewEncoder(w).Encode([]Membership{
				{ID: 1, Person: Person{ID: 100, Name: "Someone Else", Username: "else"}},
				{ID: 2, Person: Person{ID: 200, Name: "Jane Doe", Username: "jdoe", Initials: "JD"}},
			})
		case r.Method == http.MethodPut && r.URL.Path == "/projects/7/stories/42":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, _ = io.WriteString(w, `{"id":42,"current_state":"started","owner_ids":[200]}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	tr := NewTracker(client)
	update := types.StoryUpdate{State: types.StateStarted, Owner: "jane doe"}
	require.NoError(t, tr.UpdateStory(context.Background(), 7, 42, update))
	assert.Equal(t, "started", body["current_state"])
	assert.Equal(t, []any{float64(200)}, body["owner_ids"])

	// Memberships are cached per project.
	require.NoError(t, tr.UpdateStory(context.Background(), 7, 42, update))
	assert.Equal(t, int32(1), memberCalls.Load())
}

func TestTrackerUpdateStoryUnknownOwner(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			t.Error("story must not be updated for an unknown owner")
		}
		_, _ = io.WriteString(w, `[]`)
	})

	err := NewTracker(client).UpdateStory(context.Background(), 7, 42, types.StoryUpdate{State: types.StateStarted, Owner: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownOwner)
}

func TestTrackerSearchStoriesMapsSummaries(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tracker-Pagination-Total", "3")
		w.Header().Set("X-Tracker-Pagination-Offset", "0")
		w.Header().Set("X-Tracker-Pagination-Returned", "2")
		_, _ = io.WriteString(w, `[
			{"id":1,"name":"A","story_type":"release","current_state":"unstarted","labels":[{"name":"ops"}]},
			{"id":2,"name":"B","story_type":"bug","current_state":"unscheduled"}
		]`)
	})

	page, err := NewTracker(client).SearchStories(context.Background(), 5, "x", 2, 0)
	require.NoError(t, err)
	require.Len(t, page.Stories, 2)
	assert.Equal(t, types.StorySummary{
		ID: 1, ProjectID: 5, Type: "release", Title: "A",
		CurrentState: types.StateUnstarted, Labels: []string{"ops"},
	}, page.Stories[0])
	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.NextOffset())
}

func TestFindPerson(t *testing.T) {
	t.Parallel()

	members := []Membership{
		{Person: Person{ID: 1, Name: "JD", Username: "x"}},
		{Person: Person{ID: 2, Name: "John Doe", Username: "jd", Email: "john@example.com", Initials: "JD"}},
	}

	p, ok := FindPerson(members, "john@example.com")
	require.True(t, ok)
	assert.Equal(t, int64(2), p.ID)

	// Name matches win over initials.
	p, ok = FindPerson(members, "jd")
	require.True(t, ok)
	assert.Equal(t, int64(1), p.ID)

	_, ok = FindPerson(members, " ")
	assert.False(t, ok)
}
