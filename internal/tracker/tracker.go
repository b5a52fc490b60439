// Package tracker defines the interface git-start uses to talk to a remote
// story tracker. The Pivotal Tracker adapter lives in internal/pivotal.
package tracker

import (
	"context"

	"github.com/steveyegge/git-start/internal/types"
)

// StoryTracker is the remote tracker collaborator.
type StoryTracker interface {
	// Name returns the lowercase identifier for this tracker (e.g., "pivotal").
	Name() string

	// DisplayName returns the human-readable name (e.g., "Pivotal Tracker").
	DisplayName() string

	// SearchStories runs query against projectID and returns at most limit
	// stories starting at offset, in the tracker's own order.
	// Searching is idempotent and safe to repeat.
	SearchStories(ctx context.Context, projectID int64, query string, limit, offset int) (Page, error)

	// UpdateStory sets the state and owner of a story.
	UpdateStory(ctx context.Context, projectID, storyID int64, update types.StoryUpdate) error
}

// Page is one page of search results.
type Page struct {
	Stories []types.StorySummary
	// Offset is the offset the page was fetched at.
	Offset int
	// Total is the number of matching stories, or -1 when the tracker did not say.
	Total int
	// HasMore is true when stories exist beyond this page.
	HasMore bool
}

// NextOffset returns the offset of the page following p.
func (p Page) NextOffset() int {
	return p.Offset + len(p.Stories)
}
