// Package query turns the filter given to git-start into a tracker query.
//
// A filter is one of:
//   - a story id: 42
//   - a story type: feature, bug or chore (any case)
//   - a tracker search expression: label:add-ons, owner:jdoe, no:owner
//
// Search expressions may hold several clauses separated by '|', for example
// 'label:add-ons|created_since:6/20/2015'. An empty filter selects the
// default query.
package query

import (
	"errors"
	"strconv"
	"strings"

	"github.com/steveyegge/git-start/internal/types"
)

// Kind identifies the variant of a Spec.
type Kind int

const (
	KindRaw  Kind = iota // free-form search expression
	KindID               // exact story id
	KindType             // story type
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindType:
		return "type"
	default:
		return "raw"
	}
}

// ClauseSeparator separates clauses of a multi-clause filter.
const ClauseSeparator = "|"

// DefaultQuery selects stories that can still be started.
const DefaultQuery = "state:unstarted"

// Spec is the classified form of a filter. It is a value type; two
// classifications of the same filter compare equal with ==.
type Spec struct {
	Kind Kind
	ID   int64           // set for KindID
	// Literal holds a KindID id too large for int64, verbatim.
	Literal string
	Type types.StoryType // set for KindType
	Text string          // set for KindRaw
	// Default is true when Text came from an empty filter rather than the user.
	Default bool
}

// ByID returns a Spec selecting the story with the given id.
func ByID(id int64) Spec { return Spec{Kind: KindID, ID: id} }

// ByType returns a Spec selecting stories of the given type.
func ByType(t types.StoryType) Spec { return Spec{Kind: KindType, Type: t} }

// ByRawQuery returns a Spec passing text to the tracker verbatim.
func ByRawQuery(text string) Spec { return Spec{Kind: KindRaw, Text: text} }

// Default returns the Spec used for an empty filter.
func Default() Spec { return Spec{Kind: KindRaw, Text: DefaultQuery, Default: true} }

// Classify decides how filter should be searched for. It never fails:
// anything that is not an id or a type is a raw query.
func Classify(filter string) Spec {
	trimmed := strings.TrimSpace(filter)
	if trimmed == "" {
		return Default()
	}

	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err == nil && id > 0 {
		return ByID(id)
	}
	if errors.Is(err, strconv.ErrRange) && trimmed[0] != '-' {
		return Spec{Kind: KindID, Literal: strings.TrimPrefix(trimmed, "+")}
	}

	if t, ok := types.ParseStoryType(trimmed); ok {
		return ByType(t)
	}

	return ByRawQuery(filter)
}

// IDText returns the id of a KindID spec as decimal text.
func (s Spec) IDText() string {
	if s.Literal != "" {
		return s.Literal
	}
	return strconv.FormatInt(s.ID, 10)
}

// Clauses splits a raw query into its non-empty clauses.
func (s Spec) Clauses() []string {
	if s.Kind != KindRaw {
		return nil
	}
	var clauses []string
	for _, c := range strings.Split(s.Text, ClauseSeparator) {
		if c = strings.TrimSpace(c); c != "" {
			clauses = append(clauses, c)
		}
	}
	return clauses
}

// HasStateClause reports whether a raw query already constrains the story
// state, e.g. "state:started" or "-state:accepted".
func (s Spec) HasStateClause() bool {
	for _, c := range s.Clauses() {
		for _, term := range strings.Fields(c) {
			term = strings.ToLower(strings.TrimLeft(term, "-("))
			if strings.HasPrefix(term, "state:") {
				return true
			}
		}
	}
	return false
}

// String renders the spec for logs and error messages.
func (s Spec) String() string {
	switch s.Kind {
	case KindID:
		return "id " + s.IDText()
	case KindType:
		return "type " + string(s.Type)
	default:
		if s.Default {
			return "default query"
		}
		return "query " + strconv.Quote(s.Text)
	}
}
