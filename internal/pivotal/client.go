package pivotal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client provides methods to interact with the Pivotal Tracker REST API.
type Client struct {
	APIToken   string
	Endpoint   string // REST API endpoint URL (defaults to DefaultAPIEndpoint)
	HTTPClient *http.Client
	UserAgent  string

	// newBackOff builds the retry policy for read requests.
	newBackOff func() backoff.BackOff
}

// NewClient creates a new Pivotal Tracker client.
func NewClient(apiToken string) *Client {
	return &Client{
		APIToken:   apiToken,
		Endpoint:   DefaultAPIEndpoint,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  "git-start/1.0",
		newBackOff: defaultBackOff,
	}
}

// WithEndpoint returns a copy of the client using a different API endpoint.
func (c *Client) WithEndpoint(endpoint string) *Client {
	cp := *c
	cp.Endpoint = strings.TrimSuffix(endpoint, "/")
	return &cp
}

// WithHTTPClient returns a copy of the client using a different HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	cp := *c
	cp.HTTPClient = httpClient
	return &cp
}

// WithBackOff returns a copy of the client using fn to build retry policies.
func (c *Client) WithBackOff(fn func() backoff.BackOff) *Client {
	cp := *c
	cp.newBackOff = fn
	return &cp
}

func defaultBackOff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(bo, MaxRetries)
}

// SearchStories returns one page of stories in projectID matching filter,
// in the order the API returns them.
func (c *Client) SearchStories(ctx context.Context, projectID int64, filter string, limit, offset int) ([]Story, Pagination, error) {
	if limit <= 0 || limit > MaxPageSize {
		return nil, Pagination{}, fmt.Errorf("search stories: limit %d out of range 1-%d", limit, MaxPageSize)
	}

	params := url.Values{
		"filter": {filter},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
		"fields": {storyFields},
	}
	apiURL := fmt.Sprintf("%s/projects/%d/stories?%s", c.Endpoint, projectID, params.Encode())

	body, header, err := c.get(ctx, apiURL)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("search stories in project %d: %w", projectID, err)
	}

	var stories []Story
	if err := json.Unmarshal(body, &stories); err != nil {
		return nil, Pagination{}, fmt.Errorf("parse search response: %w", err)
	}

	return stories, parsePagination(header, offset, len(stories)), nil
}

// ListMemberships returns the members of a project.
func (c *Client) ListMemberships(ctx context.Context, projectID int64) ([]Membership, error) {
	apiURL := fmt.Sprintf("%s/projects/%d/memberships", c.Endpoint, projectID)

	body, _, err := c.get(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("list memberships of project %d: %w", projectID, err)
	}

	var members []Membership
	if err := json.Unmarshal(body, &members); err != nil {
		return nil, fmt.Errorf("parse memberships response: %w", err)
	}
	return members, nil
}

// UpdateStory updates a story and returns the stored result.
func (c *Client) UpdateStory(ctx context.Context, projectID, storyID int64, params *UpdateStoryParams) (*Story, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal update request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/projects/%d/stories/%d", c.Endpoint, projectID, storyID)

	body, _, err := c.doRequest(ctx, http.MethodPut, apiURL, data)
	if err != nil {
		return nil, fmt.Errorf("update story %d: %w", storyID, err)
	}

	var story Story
	if err := json.Unmarshal(body, &story); err != nil {
		return nil, fmt.Errorf("parse update response: %w", err)
	}
	return &story, nil
}

// get performs a read request, retrying rate-limited and unavailable
// responses and transport failures with exponential backoff.
func (c *Client) get(ctx context.Context, apiURL string) ([]byte, http.Header, error) {
	var (
		body   []byte
		header http.Header
	)

	newBackOff := c.newBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}

	err := backoff.Retry(func() error {
		var err error
		body, header, err = c.doRequest(ctx, http.MethodGet, apiURL, nil)
		if err == nil {
			return nil
		}
		if retryable(ctx, err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(newBackOff(), ctx))

	return body, header, err
}

// retryable reports whether a failed read may be repeated.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// doRequest executes an authenticated HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, http.Header, error) {
	if c.APIToken == "" {
		return nil, nil, fmt.Errorf("pivotal tracker API token not configured")
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-TrackerToken", c.APIToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, parseAPIError(resp.StatusCode, respBody)
	}

	return respBody, resp.Header, nil
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	apiErr.StatusCode = status
	return apiErr
}

// parsePagination reads the pagination headers. When the API omits them the
// page is assumed to be the last one.
func parsePagination(h http.Header, offset, returned int) Pagination {
	p := Pagination{
		Total:    headerInt(h, headerPaginationTotal),
		Offset:   headerInt(h, headerPaginationOffset),
		Limit:    headerInt(h, headerPaginationLimit),
		Returned: headerInt(h, headerPaginationReturned),
	}
	if p.Offset < 0 {
		p.Offset = offset
	}
	if p.Returned < 0 {
		p.Returned = returned
	}
	return p
}

func headerInt(h http.Header, key string) int {
	v := h.Get(key)
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
