package pivotal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/steveyegge/git-start/internal/tracker"
	"github.com/steveyegge/git-start/internal/types"
)

// ErrUnknownOwner is returned when an owner cannot be matched to a project member.
var ErrUnknownOwner = errors.New("owner is not a member of the project")

// Tracker adapts Client to tracker.StoryTracker.
type Tracker struct {
	client *Client

	mu      sync.Mutex
	members map[int64][]Membership // project id -> members
}

var _ tracker.StoryTracker = (*Tracker)(nil)

// NewTracker creates a StoryTracker backed by client.
func NewTracker(client *Client) *Tracker {
	return &Tracker{client: client, members: make(map[int64][]Membership)}
}

func (t *Tracker) Name() string        { return "pivotal" }
func (t *Tracker) DisplayName() string { return "Pivotal Tracker" }

// SearchStories implements tracker.StoryTracker.
func (t *Tracker) SearchStories(ctx context.Context, projectID int64, query string, limit, offset int) (tracker.Page, error) {
	stories, pg, err := t.client.SearchStories(ctx, projectID, query, limit, offset)
	if err != nil {
		return tracker.Page{}, err
	}

	page := tracker.Page{
		Stories: make([]types.StorySummary, 0, len(stories)),
		Offset:  offset,
		Total:   pg.Total,
		HasMore: pg.HasMore(),
	}
	for _, s := range stories {
		page.Stories = append(page.Stories, toSummary(s, projectID))
	}
	return page, nil
}

// UpdateStory implements tracker.StoryTracker. The owner is matched against
// the project's members by name, username, email or initials.
func (t *Tracker) UpdateStory(ctx context.Context, projectID, storyID int64, update types.StoryUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	personID, err := t.lookupOwner(ctx, projectID, update.Owner)
	if err != nil {
		return err
	}

	state := string(update.State)
	_, err = t.client.UpdateStory(ctx, projectID, storyID, &UpdateStoryParams{
		CurrentState: &state,
		OwnerIDs:     []int64{personID},
	})
	return err
}

func (t *Tracker) lookupOwner(ctx context.Context, projectID int64, owner string) (int64, error) {
	t.mu.Lock()
	members, ok := t.members[projectID]
	t.mu.Unlock()

	if !ok {
		var err error
		members, err = t.client.ListMemberships(ctx, projectID)
		if err != nil {
			return 0, err
		}
		t.mu.Lock()
		t.members[projectID] = members
		t.mu.Unlock()
	}

	if p, ok := FindPerson(members, owner); ok {
		return p.ID, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOwner, owner)
}

// FindPerson returns the member whose name, username, email or initials
// equal owner, ignoring case. Names are checked first.
func FindPerson(members []Membership, owner string) (Person, bool) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Person{}, false
	}
	match := []func(Person) string{
		func(p Person) string { return p.Name },
		func(p Person) string { return p.Username },
		func(p Person) string { return p.Email },
		func(p Person) string { return p.Initials },
	}
	for _, field := range match {
		for _, m := range members {
			if v := field(m.Person); v != "" && strings.EqualFold(v, owner) {
				return m.Person, true
			}
		}
	}
	return Person{}, false
}

func toSummary(s Story, projectID int64) types.StorySummary {
	if s.ProjectID != 0 {
		projectID = s.ProjectID
	}
	var labels []string
	for _, l := range s.Labels {
		labels = append(labels, l.Name)
	}
	return types.StorySummary{
		ID:           s.ID,
		ProjectID:    projectID,
		Type:         types.StoryType(s.StoryType),
		Title:        s.Name,
		CurrentState: types.StoryState(s.CurrentState),
		URL:          s.URL,
		Description:  s.Description,
		Labels:       labels,
	}
}
