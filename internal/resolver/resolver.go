// Package resolver turns a classified filter into exactly one story,
// asking the operator to choose when the tracker returns several.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/steveyegge/git-start/internal/prompt"
	"github.com/steveyegge/git-start/internal/query"
	"github.com/steveyegge/git-start/internal/tracker"
	"github.com/steveyegge/git-start/internal/types"
)

// DefaultLimit is the page size used when none is given.
const DefaultLimit = 10

// MoreToken asks the selection prompt for the next page. "more" is accepted too.
const MoreToken = "m"

// ErrInvalidSelection is reported (and recovered from) when the operator
// enters something that is neither a listed number, the more token nor blank.
var ErrInvalidSelection = errors.New("invalid selection")

// Outcome is the result kind of a Resolve call.
type Outcome int

const (
	Resolved  Outcome = iota // exactly one story chosen
	NoMatch                  // the query matched nothing
	Cancelled                // the operator entered a blank line or input ended
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NoMatch:
		return "no match"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is returned by Resolve. Story is set only when Outcome is Resolved.
type Result struct {
	Outcome Outcome
	Story   types.StorySummary
	// Query is the tracker query text that was issued.
	Query string
}

// Resolver runs a query against a tracker and drives the selection loop.
type Resolver struct {
	tracker      tracker.StoryTracker
	in           prompt.LineReader
	out          io.Writer
	logger       *slog.Logger
	defaultQuery string
	format       func(types.StorySummary) string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDefaultQuery replaces the query used for an empty filter.
func WithDefaultQuery(q string) Option {
	return func(r *Resolver) {
		if strings.TrimSpace(q) != "" {
			r.defaultQuery = q
		}
	}
}

// WithListFormat sets how a story is rendered in the numbered listing.
func WithListFormat(format func(types.StorySummary) string) Option {
	return func(r *Resolver) {
		if format != nil {
			r.format = format
		}
	}
}

// New creates a Resolver reading choices from in and writing listings to out.
func New(t tracker.StoryTracker, in prompt.LineReader, out io.Writer, opts ...Option) *Resolver {
	r := &Resolver{
		tracker:      t,
		in:           in,
		out:          out,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultQuery: query.DefaultQuery,
		format:       types.StorySummary.String,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QueryText builds the tracker search expression for spec. Raw queries
// without a state clause are narrowed to unstarted stories; id and type
// queries are passed through unchanged.
func (r *Resolver) QueryText(spec query.Spec) string {
	switch spec.Kind {
	case query.KindID:
		return "id:" + spec.IDText()
	case query.KindType:
		return "type:" + string(spec.Type)
	}

	if spec.Default {
		spec = query.ByRawQuery(r.defaultQuery)
	}
	text := strings.Join(spec.Clauses(), " ")
	if !spec.HasStateClause() {
		text = strings.TrimSpace(text + " " + query.DefaultQuery)
	}
	return text
}

// selection is the state of one interactive selection.
type selection struct {
	projectID  int64
	query      string
	limit      int
	candidates []types.StorySummary
	hasMore    bool
}

// Resolve searches projectID for spec and returns the chosen story.
// Tracker failures are returned as errors; cancellation and empty results
// are outcomes, not errors.
func (r *Resolver) Resolve(ctx context.Context, projectID int64, spec query.Spec, limit int) (Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	sel := &selection{projectID: projectID, query: r.QueryText(spec), limit: limit}
	result := Result{Query: sel.query}

	r.logger.Debug("searching stories", "project", projectID, "spec", spec.String(), "query", sel.query, "limit", limit)
	if _, err := r.fetch(ctx, sel); err != nil {
		return result, err
	}

	switch len(sel.candidates) {
	case 0:
		fmt.Fprintln(r.out, "No matching story found")
		result.Outcome = NoMatch
		return result, nil
	case 1:
		result.Outcome = Resolved
		result.Story = sel.candidates[0]
		return result, nil
	}

	r.list(sel, 0)
	for {
		line, err := r.in.ReadLine(ctx, r.promptText(sel))
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			result.Outcome = Cancelled
			return result, nil
		}
		if err != nil {
			return result, err
		}

		idx, more, err := parseSelection(line, sel)
		switch {
		case err != nil:
			fmt.Fprintf(r.out, "%v\n", err)
		case more:
			shown := len(sel.candidates)
			n, err := r.fetch(ctx, sel)
			if err != nil {
				return result, err
			}
			if n == 0 {
				fmt.Fprintln(r.out, "No more stories")
				continue
			}
			r.list(sel, shown)
		case idx < 0:
			result.Outcome = Cancelled
			return result, nil
		default:
			result.Outcome = Resolved
			result.Story = sel.candidates[idx]
			return result, nil
		}
	}
}

// fetch appends the next page to sel and returns how many stories it added.
func (r *Resolver) fetch(ctx context.Context, sel *selection) (int, error) {
	offset := len(sel.candidates)
	page, err := r.tracker.SearchStories(ctx, sel.projectID, sel.query, sel.limit, offset)
	if err != nil {
		return 0, fmt.Errorf("search stories: %w", err)
	}
	r.logger.Debug("fetched stories", "offset", offset, "count", len(page.Stories), "has_more", page.HasMore)

	sel.candidates = append(sel.candidates, page.Stories...)
	sel.hasMore = page.HasMore && len(page.Stories) > 0
	return len(page.Stories), nil
}

// list prints candidates from index start onward, numbered from start+1.
func (r *Resolver) list(sel *selection, start int) {
	width := len(strconv.Itoa(len(sel.candidates)))
	for i := start; i < len(sel.candidates); i++ {
		fmt.Fprintf(r.out, "%*d: %s\n", width, i+1, r.format(sel.candidates[i]))
	}
}

func (r *Resolver) promptText(sel *selection) string {
	if sel.hasMore {
		return fmt.Sprintf("Choose story (1-%d, %s for more, enter to cancel): ", len(sel.candidates), MoreToken)
	}
	return fmt.Sprintf("Choose story (1-%d, enter to cancel): ", len(sel.candidates))
}

// parseSelection interprets one line of input. It returns idx -1 for a
// blank line, more=true for the paging token, or a zero-based index.
func parseSelection(line string, sel *selection) (idx int, more bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return -1, false, nil
	}

	if strings.EqualFold(line, MoreToken) || strings.EqualFold(line, "more") {
		if !sel.hasMore {
			return 0, false, fmt.Errorf("%w: no more stories to show", ErrInvalidSelection)
		}
		return 0, true, nil
	}

	n, convErr := strconv.Atoi(line)
	if convErr != nil || n < 1 || n > len(sel.candidates) {
		return 0, false, fmt.Errorf("%w %q: enter a number between 1 and %d", ErrInvalidSelection, line, len(sel.candidates))
	}
	return n - 1, false, nil
}
