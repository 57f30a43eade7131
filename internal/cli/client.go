package cli

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const userAgent = "Unify-CLI/0.1.0"

// APIError is a non-2xx response, decoded from the server's
// {"error": ..., "code": ...} body when possible
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%d] %s: %s (field: %s)", e.StatusCode, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthorized reports a missing or rejected session token
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

func parseError(resp *resty.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Code = "UNKNOWN_ERROR"
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

// Client calls the Unify HTTP API
type Client struct {
	http *resty.Client
	log  *log.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, logger *log.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}

	rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP request", "method", req.Method, "url", req.URL)
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP response", "status", resp.StatusCode(), "duration", resp.Time())
		return nil
	})

	return &Client{http: rc, log: logger}
}

// do sends the request and decodes a 2xx body into out (when non-nil)
func (c *Client) do(ctx context.Context, method, path string, prepare func(*resty.Request), out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if prepare != nil {
		prepare(req)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.IsSuccess() {
		return parseError(resp)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func withBody(body interface{}) func(*resty.Request) {
	return func(r *resty.Request) { r.SetBody(body) }
}

func withQuery(params map[string]string) func(*resty.Request) {
	return func(r *resty.Request) {
		for k, v := range params {
			if v != "" {
				r.SetQueryParam(k, v)
			}
		}
	}
}

func itoa(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", withBody(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Friends(ctx context.Context, search string, limit, offset int) (*FriendList, error) {
	var out FriendList
	q := map[string]string{"search": search, "limit": itoa(limit), "offset": itoa(offset)}
	if err := c.do(ctx, http.MethodGet, "/api/friends/list", withQuery(q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FriendsOverview includes pending requests in both directions
func (c *Client) FriendsOverview(ctx context.Context) (*FriendsOverview, error) {
	var out FriendsOverview
	if err := c.do(ctx, http.MethodGet, "/api/friends", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Suggestions(ctx context.Context, limit, offset int) (*SuggestionPage, error) {
	var out SuggestionPage
	q := map[string]string{"limit": itoa(limit), "offset": itoa(offset)}
	if err := c.do(ctx, http.MethodGet, "/api/friends/suggestions", withQuery(q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FriendBadges(ctx context.Context) (*FriendBadges, error) {
	var out FriendBadges
	if err := c.do(ctx, http.MethodGet, "/api/friends/badges", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, userID string) (*Friendship, error) {
	var out Friendship
	if err := c.do(ctx, http.MethodPost, "/api/friends/request", withBody(map[string]string{"userId": userID}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RespondToFriendRequest sets status to accepted, declined or blocked
func (c *Client) RespondToFriendRequest(ctx context.Context, friendshipID, status string) (*Friendship, error) {
	var out Friendship
	body := map[string]string{"friendshipId": friendshipID, "status": status}
	if err := c.do(ctx, http.MethodPatch, "/api/friends", withBody(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveFriend(ctx context.Context, friendshipID string) error {
	return c.do(ctx, http.MethodDelete, "/api/friends", withQuery(map[string]string{"friendshipId": friendshipID}), nil)
}

func (c *Client) Search(ctx context.Context, query, kind string) (*SearchResults, error) {
	var out SearchResults
	if err := c.do(ctx, http.MethodGet, "/api/search", withQuery(map[string]string{"q": query, "type": kind}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PublishedStories(ctx context.Context, userID string, limit, skip int) (*StoriesResponse, error) {
	var out StoriesResponse
	q := map[string]string{"userId": userID, "limit": itoa(limit), "skip": itoa(skip)}
	if err := c.do(ctx, http.MethodGet, "/api/stories/published", withQuery(q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendMessage(ctx context.Context, receiverID, content string) (*Message, error) {
	var out Message
	body := map[string]string{"receiverId": receiverID, "content": content}
	if err := c.do(ctx, http.MethodPost, "/api/messages", withBody(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTyping reports the caller's typing state toward partnerID and returns
// whether the partner is typing back
func (c *Client) SetTyping(ctx context.Context, partnerID string, typing bool) (*TypingStatus, error) {
	var out TypingStatus
	body := map[string]interface{}{"conversationPartnerId": partnerID, "isTyping": typing}
	if err := c.do(ctx, http.MethodPost, "/api/messages/typing", withBody(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
