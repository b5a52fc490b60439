// Package pivotal provides a client for the Pivotal Tracker REST API (v5).
//
// Only the calls git-start needs are implemented: searching a project's
// stories, listing project members and updating a story's state and owner.
package pivotal

import (
	"errors"
	"fmt"
	"time"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the Pivotal Tracker REST API endpoint.
	DefaultAPIEndpoint = "https://www.pivotaltracker.com/services/v5"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for rate-limited or
	// unavailable read requests. Writes are never retried.
	MaxRetries = 3

	// MaxPageSize is the largest page the API serves for story searches.
	MaxPageSize = 500
)

// Pagination response headers.
const (
	headerPaginationTotal    = "X-Tracker-Pagination-Total"
	headerPaginationOffset   = "X-Tracker-Pagination-Offset"
	headerPaginationLimit    = "X-Tracker-Pagination-Limit"
	headerPaginationReturned = "X-Tracker-Pagination-Returned"
)

// storyFields is the set of fields requested for stories.
const storyFields = "id,project_id,name,story_type,current_state,url,description,labels(name)"

// Story represents a story from the Pivotal Tracker API.
type Story struct {
	ID           int64   `json:"id"`
	ProjectID    int64   `json:"project_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	StoryType    string  `json:"story_type"`    // "feature", "bug", "chore", "release"
	CurrentState string  `json:"current_state"` // "unstarted", "started", ...
	URL          string  `json:"url"`
	Labels       []Label `json:"labels"`
	OwnerIDs     []int64 `json:"owner_ids,omitempty"`
}

// Label represents a story label.
type Label struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Person represents a Pivotal Tracker user.
type Person struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Initials string `json:"initials"`
	Username string `json:"username"`
}

// Membership represents a person's membership in a project.
type Membership struct {
	ID     int64  `json:"id"`
	Role   string `json:"role"`
	Person Person `json:"person"`
}

// UpdateStoryParams represents parameters for updating a story.
type UpdateStoryParams struct {
	CurrentState *string `json:"current_state,omitempty"`
	OwnerIDs     []int64 `json:"owner_ids,omitempty"`
}

// Pagination describes the page returned by a paginated request.
// Fields are -1 when the corresponding header was missing.
type Pagination struct {
	Total    int
	Offset   int
	Limit    int
	Returned int
}

// HasMore reports whether results exist beyond this page.
func (p Pagination) HasMore() bool {
	if p.Total < 0 || p.Offset < 0 || p.Returned < 0 {
		return false
	}
	return p.Offset+p.Returned < p.Total
}

// ErrNotFound is matched by errors for missing projects or stories.
var ErrNotFound = errors.New("not found")

// APIError is an error response from the API.
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Kind        string `json:"kind"`
	Message     string `json:"error"`
	Requirement string `json:"requirement"`
	PossibleFix string `json:"possible_fix"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Requirement != "" {
		msg += ": " + e.Requirement
	}
	return fmt.Sprintf("pivotal tracker API returned %d: %s", e.StatusCode, msg)
}

// Is makes errors.Is(err, ErrNotFound) true for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && (e.StatusCode == 404 || e.Code == "unfound_resource")
}

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode == 502 || e.StatusCode == 503 || e.StatusCode == 504
}
