package instagram

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the persisted login state of the private API client.
type Session struct {
	Username      string            `json:"username"`
	UserID        string            `json:"user_id"`
	DeviceID      string            `json:"device_id"`
	UUID          string            `json:"uuid"`
	PhoneID       string            `json:"phone_id"`
	Authorization string            `json:"authorization,omitempty"`
	Cookies       map[string]string `json:"cookies"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewSession returns an empty session with fresh device identifiers.
func NewSession(username string) *Session {
	id := uuid.New()
	return &Session{
		Username:  username,
		DeviceID:  "android-" + strings.ReplaceAll(id.String(), "-", "")[:16],
		UUID:      uuid.NewString(),
		PhoneID:   uuid.NewString(),
		Cookies:   map[string]string{},
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Cookies = make(map[string]string, len(s.Cookies))
	for k, v := range s.Cookies {
		out.Cookies[k] = v
	}
	return &out
}

func (s *Session) apply(req *http.Request) {
	for name, value := range s.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if token, ok := s.Cookies["csrftoken"]; ok {
		req.Header.Set("X-CSRFToken", token)
	}
	if s.Authorization != "" {
		req.Header.Set("Authorization", s.Authorization)
	}
	if s.UserID != "" {
		req.Header.Set("IG-U-DS-User-ID", s.UserID)
	}
	if s.DeviceID != "" {
		req.Header.Set("X-IG-Device-ID", s.UUID)
		req.Header.Set("X-IG-Android-ID", s.DeviceID)
	}
}

func (s *Session) absorb(resp *http.Response) {
	if s.Cookies == nil {
		s.Cookies = map[string]string{}
	}
	for _, c := range resp.Cookies() {
		if c.Value == "" || c.MaxAge < 0 {
			delete(s.Cookies, c.Name)
			continue
		}
		s.Cookies[c.Name] = c.Value
	}
	if auth := resp.Header.Get("Ig-Set-Authorization"); auth != "" {
		s.Authorization = auth
	}
	if id := resp.Header.Get("Ig-Set-Ig-U-Ds-User-Id"); id != "" && s.UserID == "" {
		s.UserID = id
	}
}
