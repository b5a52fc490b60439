// Package types defines the story data shared by the tracker, resolver and
// workflow packages.
package types

import (
	"fmt"
	"strings"
)

// StoryType categorizes the kind of work a story represents.
// Values outside the known set are kept verbatim.
type StoryType string

// Story type constants
const (
	TypeFeature StoryType = "feature"
	TypeBug     StoryType = "bug"
	TypeChore   StoryType = "chore"
)

// KnownStoryTypes lists the story types the tracker defines, in display order.
var KnownStoryTypes = []StoryType{TypeFeature, TypeBug, TypeChore}

// ParseStoryType matches s case-insensitively against the known story types.
// The returned type is normalized to lower case.
func ParseStoryType(s string) (StoryType, bool) {
	s = strings.TrimSpace(s)
	for _, t := range KnownStoryTypes {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

// IsKnown reports whether t is one of feature, bug or chore.
func (t StoryType) IsKnown() bool {
	switch t {
	case TypeFeature, TypeBug, TypeChore:
		return true
	}
	return false
}

// StoryState is the tracker-defined lifecycle label of a story.
type StoryState string

// Story state constants
const (
	StateUnscheduled StoryState = "unscheduled"
	StateUnstarted   StoryState = "unstarted"
	StatePlanned     StoryState = "planned"
	StateStarted     StoryState = "started"
	StateFinished    StoryState = "finished"
	StateDelivered   StoryState = "delivered"
	StateAccepted    StoryState = "accepted"
	StateRejected    StoryState = "rejected"
)

// IsStartable reports whether a story in state s may be moved to started.
func (s StoryState) IsStartable() bool {
	switch s {
	case StateUnscheduled, StateUnstarted, StatePlanned:
		return true
	}
	return false
}

// StorySummary is an immutable snapshot of one story as returned by search.
type StorySummary struct {
	ID           int64      `json:"id"`
	ProjectID    int64      `json:"project_id"`
	Type         StoryType  `json:"story_type"`
	Title        string     `json:"name"`
	CurrentState StoryState `json:"current_state"`
	URL          string     `json:"url,omitempty"`
	Description  string     `json:"description,omitempty"`
	Labels       []string   `json:"labels,omitempty"`
}

// String returns the one-line "<id> <type> <title>" form used in listings.
func (s StorySummary) String() string {
	return fmt.Sprintf("%d %s %s", s.ID, s.Type, s.Title)
}

// StoryUpdate carries the only fields the start workflow ever changes.
type StoryUpdate struct {
	State StoryState
	Owner string
}

// Validate checks that the update names a state and an owner.
func (u StoryUpdate) Validate() error {
	if u.State == "" {
		return fmt.Errorf("story update: state is required")
	}
	if strings.TrimSpace(u.Owner) == "" {
		return fmt.Errorf("story update: owner is required")
	}
	return nil
}
