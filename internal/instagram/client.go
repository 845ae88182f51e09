// Package instagram is a small client for the parts of the Instagram private
// API needed to read a public account's stories. Responses are normalized into
// domain.Story at this boundary.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/mensabot/internal/domain"
)

const (
	DefaultBaseURL = "https://i.instagram.com"

	userAgent = "Instagram 269.0.0.18.75 Android (26/8.0.0; 480dpi; 1080x1920; OnePlus; 6T Dev; devitron; qcom; it_IT; 314665256)"
	appID     = "567067343352427"

	maxImageBytes = 20 << 20
)

type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	session *Session
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		now:     time.Now,
	}
}

// Session returns a copy of the current session, or nil before login.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.clone()
}

func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s.clone()
}

type loginResponse struct {
	Status       string `json:"status"`
	LoggedInUser struct {
		PK       flexID `json:"pk"`
		Username string `json:"username"`
	} `json:"logged_in_user"`
}

// Login performs a credential login. Device identifiers from an existing
// session are kept so the account does not see a new device on every run.
func (c *Client) Login(ctx context.Context, username, password string) error {
	sess := c.Session()
	if sess == nil || sess.Username != username {
		sess = NewSession(username)
	}
	sess.Authorization = ""

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM:0:%d:%s", c.now().Unix(), password))
	form.Set("device_id", sess.DeviceID)
	form.Set("guid", sess.UUID)
	form.Set("phone_id", sess.PhoneID)
	form.Set("login_attempt_count", "0")

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/accounts/login/", strings.NewReader(form.Encode()), sess)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	var out loginResponse
	if err := c.do(req, "login", sess, &out); err != nil {
		return err
	}
	if out.LoggedInUser.PK == "" {
		return &DecodeError{Op: "login", Err: fmt.Errorf("response has no logged_in_user")}
	}
	sess.UserID = string(out.LoggedInUser.PK)
	sess.CreatedAt = c.now().UTC()
	c.SetSession(sess)
	return nil
}

// ValidateSession checks that the stored session is still accepted.
func (c *Client) ValidateSession(ctx context.Context) error {
	sess := c.Session()
	if sess == nil {
		return ErrLoginRequired
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/accounts/current_user/?edit=true", nil, sess)
	if err != nil {
		return err
	}
	var out struct {
		Status string `json:"status"`
		User   struct {
			PK flexID `json:"pk"`
		} `json:"user"`
	}
	if err := c.do(req, "validate session", sess, &out); err != nil {
		return err
	}
	if out.User.PK == "" {
		return ErrLoginRequired
	}
	sess.UserID = string(out.User.PK)
	c.SetSession(sess)
	return nil
}

// ResolveUserID returns the numeric id of a public account handle.
func (c *Client) ResolveUserID(ctx context.Context, username string) (string, error) {
	sess := c.Session()
	path := "/api/v1/users/web_profile_info/?username=" + url.QueryEscape(username)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, sess)
	if err != nil {
		return "", err
	}
	var out struct {
		Data struct {
			User *struct {
				ID flexID `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := c.do(req, "resolve user id", sess, &out); err != nil {
		return "", err
	}
	if out.Data.User == nil {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if out.Data.User.ID == "" {
		return "", &DecodeError{Op: "resolve user id", Err: fmt.Errorf("user %s has no id", username)}
	}
	return string(out.Data.User.ID), nil
}

type reel struct {
	Items []storyItem `json:"items"`
}

// ListStories returns the account's active stories in feed order. An account
// with no active stories yields an empty slice and no error.
func (c *Client) ListStories(ctx context.Context, userID string) ([]domain.Story, error) {
	sess := c.Session()
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/feed/user/"+url.PathEscape(userID)+"/story/", nil, sess)
	if err != nil {
		return nil, err
	}
	var out struct {
		Reel *reel `json:"reel"`
	}
	if err := c.do(req, "list stories", sess, &out); err != nil {
		return nil, err
	}
	if out.Reel == nil {
		return []domain.Story{}, nil
	}
	return normalize(out.Reel.Items), nil
}

// ListStoriesDirect reads the same stories through the reels media endpoint.
// It is used when the story feed keeps failing.
func (c *Client) ListStoriesDirect(ctx context.Context, userID string) ([]domain.Story, error) {
	sess := c.Session()
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/feed/reels_media/?reel_ids="+url.QueryEscape(userID), nil, sess)
	if err != nil {
		return nil, err
	}
	var out struct {
		Reels map[string]reel `json:"reels"`
	}
	if err := c.do(req, "list reels media", sess, &out); err != nil {
		return nil, err
	}
	r, ok := out.Reels[userID]
	if !ok {
		return []domain.Story{}, nil
	}
	return normalize(r.Items), nil
}

// Download fetches a media URL. CDN URLs are absolute; relative paths are
// resolved against the API base.
func (c *Client) Download(ctx context.Context, mediaURL string) ([]byte, error) {
	if mediaURL == "" {
		return nil, fmt.Errorf("empty media url")
	}
	target := mediaURL
	if strings.HasPrefix(mediaURL, "/") {
		target = c.baseURL + mediaURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close media response body", "error", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	return data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, sess *Session) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-IG-App-ID", appID)
	req.Header.Set("Accept-Language", "it-IT, en-US")
	if sess != nil {
		sess.apply(req)
	}
	return req, nil
}

// do sends req, folds response cookies into sess and decodes a 2xx body into
// out. Failure bodies are classified into the package sentinels.
func (c *Client) do(req *http.Request, op string, sess *Session, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close instagram response body", "error", err)
		}
	}()
	if sess != nil {
		sess.absorb(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if len(raw) > 0 && json.Unmarshal(raw, &apiErr) == nil {
			return fmt.Errorf("%s: %w", op, classify(resp.StatusCode, apiErr))
		}
		return fmt.Errorf("%s: %w", op, classify(resp.StatusCode, apiError{Message: http.StatusText(resp.StatusCode)}))
	}

	var status apiError
	if json.Unmarshal(raw, &status) == nil && status.Status == "fail" {
		return fmt.Errorf("%s: %w", op, classify(resp.StatusCode, status))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(out); err != nil {
		c.logger.Debug("undecodable instagram response", "op", op, "bytes", len(raw))
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

// flexID accepts ids encoded either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return fmt.Errorf("invalid id %s", n)
	}
	*f = flexID(n.String())
	return nil
}
