// ABOUTME: HTTP client for the fitfeed REST API with bearer-token auth.
// ABOUTME: Covers feed paging, likes, views, profiles, and multipart post upload.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/onlyfashion/fitfeed/internal/models"
	"github.com/onlyfashion/fitfeed/internal/tagging"
)

// TokenProvider supplies the bearer token for each request. It is the only
// surface the identity provider exposes to this client.
type TokenProvider func() (string, error)

// ErrNoToken is returned before any request is sent when the token provider
// yields an empty token.
var ErrNoToken = errors.New("no authentication token available")

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Code, e.Body)
}

// Client talks to the fitfeed REST API. Construct one per authenticated
// session and pass it to the components that need it.
type Client struct {
	baseURL string
	tokens  TokenProvider
	client  *http.Client
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string, tokens TokenProvider) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// newRequest builds an authenticated request. Absence of a token is a hard
// precondition failure; no request is sent.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens()
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if token == "" {
		return nil, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// do sends the request and returns the response, converting non-2xx statuses
// into *StatusError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// wireAuthor maps the author object on a feed post.
type wireAuthor struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatar_url"`
}

// wireItem maps a clothing item on a feed post.
type wireItem struct {
	ID         string   `json:"id"`
	ItemName   string   `json:"item_name"`
	Name       string   `json:"name"`
	Brand      string   `json:"brand"`
	PriceCents int      `json:"price_cents"`
	Currency   string   `json:"currency"`
	Link       string   `json:"link"`
	UserDesc   string   `json:"user_desc"`
	Sizes      []string `json:"sizes"`
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
}

// wirePost maps a single post from the feed API.
type wirePost struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Author      wireAuthor `json:"author"`
	CreatedAt   string     `json:"created_at"`
	Images      []string   `json:"images"`
	Likes       int        `json:"likes"`
	LikedByMe   bool       `json:"liked_by_me"`
	Tags        []string   `json:"tags"`
	Items       []wireItem `json:"items"`
}

// feedEnvelope is the top-level response from GET /feed.
type feedEnvelope struct {
	Feed       []wirePost `json:"feed"`
	NextCursor *string    `json:"next_cursor"`
}

// userPostsEnvelope is the top-level response from GET /users/{id}/posts.
type userPostsEnvelope struct {
	Posts      []wirePost `json:"posts"`
	NextCursor *string    `json:"next_cursor"`
}

// toPost converts a wire post into the domain model, filling the fallbacks
// the feed renderer expects. Returns nil for a post with no images.
func toPost(wp wirePost) *models.FeedPost {
	if len(wp.Images) == 0 {
		return nil
	}

	post := &models.FeedPost{
		ID:          wp.ID,
		Title:       wp.Title,
		Description: wp.Description,
		Author: models.Author{
			ID:        wp.Author.ID,
			Handle:    wp.Author.Handle,
			AvatarURL: wp.Author.AvatarURL,
		},
		Images:    wp.Images,
		LikeCount: wp.Likes,
		LikedByMe: wp.LikedByMe,
		Tags:      wp.Tags,
	}
	if post.Title == "" {
		post.Title = "Untitled Outfit"
	}
	if post.Author.Handle == "" {
		post.Author.Handle = "unknown"
	}
	if ts, err := time.Parse(time.RFC3339, wp.CreatedAt); err == nil {
		post.CreatedAt = ts
	}

	for _, wi := range wp.Items {
		item := models.TaggedItem{
			ID:          wi.ID,
			Name:        wi.ItemName,
			Brand:       wi.Brand,
			PriceCents:  wi.PriceCents,
			Currency:    wi.Currency,
			Sizes:       wi.Sizes,
			Link:        wi.Link,
			Description: wi.UserDesc,
			Position:    tagging.FromAPIPosition(fraction(wi.X), fraction(wi.Y)),
		}
		if item.Name == "" {
			item.Name = wi.Name
		}
		if item.Name == "" {
			item.Name = "Unknown Item"
		}
		if item.Brand == "" {
			item.Brand = "Unknown"
		}
		item.Price = models.FormatPrice(item.PriceCents, item.Currency)
		post.Items = append(post.Items, item)
	}
	return post
}

// fraction unwraps an optional API coordinate, centering missing values.
func fraction(v *float64) float64 {
	if v == nil {
		return 0.5
	}
	return *v
}

func toPage(posts []wirePost, next *string) models.FeedPage {
	page := models.FeedPage{}
	for _, wp := range posts {
		if p := toPost(wp); p != nil {
			page.Posts = append(page.Posts, p)
		}
	}
	if next != nil {
		page.NextCursor = *next
	}
	return page
}

// Feed fetches one page of the outfit feed. An empty cursor starts from the
// top; the returned page's cursor is empty at the terminal page.
func (c *Client) Feed(ctx context.Context, limit int, cursor string) (models.FeedPage, error) {
	req, err := c.newRequest(ctx, "GET", "/feed", nil)
	if err != nil {
		return models.FeedPage{}, err
	}

	q := req.URL.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.do(req)
	if err != nil {
		return models.FeedPage{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env feedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return models.FeedPage{}, fmt.Errorf("failed to decode feed response: %w", err)
	}
	return toPage(env.Feed, env.NextCursor), nil
}

// UserPosts fetches a page of posts authored by the given user, or by the
// caller when userID is "me".
func (c *Client) UserPosts(ctx context.Context, userID string, limit int, cursor string) (models.FeedPage, error) {
	if userID == "" {
		userID = "me"
	}
	req, err := c.newRequest(ctx, "GET", "/users/"+userID+"/posts", nil)
	if err != nil {
		return models.FeedPage{}, err
	}

	q := req.URL.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.do(req)
	if err != nil {
		return models.FeedPage{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env userPostsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return models.FeedPage{}, fmt.Errorf("failed to decode posts response: %w", err)
	}
	return toPage(env.Posts, env.NextCursor), nil
}

// Like marks a post as liked by the caller.
func (c *Client) Like(ctx context.Context, postID string) error {
	return c.simpleCall(ctx, "POST", "/posts/"+postID+"/like")
}

// Unlike removes the caller's like from a post.
func (c *Client) Unlike(ctx context.Context, postID string) error {
	return c.simpleCall(ctx, "DELETE", "/posts/"+postID+"/like")
}

// RecordView records that the caller viewed a post.
func (c *Client) RecordView(ctx context.Context, postID string) error {
	return c.simpleCall(ctx, "POST", "/posts/"+postID+"/view")
}

func (c *Client) simpleCall(ctx context.Context, method, path string) error {
	req, err := c.newRequest(ctx, method, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
