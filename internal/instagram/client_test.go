package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mensabot/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c := NewClient(server.URL, nil)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestLogin(t *testing.T) {
	var form map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/accounts/login/", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"username":     r.PostForm.Get("username"),
			"enc_password": r.PostForm.Get("enc_password"),
			"device_id":    r.PostForm.Get("device_id"),
		}
		assert.Equal(t, appID, r.Header.Get("X-IG-App-ID"))

		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "abc"})
		w.Header().Set("Ig-Set-Authorization", "Bearer IGT:2:token")
		_, _ = w.Write([]byte(`{"status":"ok","logged_in_user":{"pk":12345,"username":"mensabot"}}`))
	})

	require.NoError(t, c.Login(context.Background(), "mensabot", "hunter2"))

	assert.Equal(t, "mensabot", form["username"])
	assert.Equal(t, "#PWD_INSTAGRAM:0:1700000000:hunter2", form["enc_password"])
	assert.True(t, strings.HasPrefix(form["device_id"], "android-"))

	sess := c.Session()
	require.NotNil(t, sess)
	assert.Equal(t, "12345", sess.UserID)
	assert.Equal(t, "abc", sess.Cookies["sessionid"])
	assert.Equal(t, "Bearer IGT:2:token", sess.Authorization)
}

func TestLoginKeepsDeviceIdentifiers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","logged_in_user":{"pk":"1"}}`))
	})
	prev := NewSession("mensabot")
	c.SetSession(prev)

	require.NoError(t, c.Login(context.Background(), "mensabot", "pw"))
	assert.Equal(t, prev.DeviceID, c.Session().DeviceID)
	assert.Equal(t, prev.UUID, c.Session().UUID)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad password", http.StatusBadRequest, `{"status":"fail","message":"The password you entered is incorrect.","error_type":"bad_password"}`, ErrBadPassword},
		{"challenge", http.StatusBadRequest, `{"status":"fail","message":"challenge_required","challenge":{"url":"x"}}`, ErrChallengeRequired},
		{"ip block", http.StatusBadRequest, `{"status":"fail","message":"blocked","error_type":"ip_block"}`, ErrIPBlocked},
		{"rate limit", http.StatusTooManyRequests, `{"status":"fail","message":"Please wait a few minutes before you try again."}`, ErrRateLimited},
		{"fail in 200", http.StatusOK, `{"status":"fail","message":"login_required"}`, ErrLoginRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := c.Login(context.Background(), "u", "p")
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, c.Session())
		})
	}
}

func TestValidateSession(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:0", nil)
		assert.ErrorIs(t, c.ValidateSession(context.Background()), ErrLoginRequired)
	})

	t.Run("valid", func(t *testing.T) {
		var gotCookie string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/accounts/current_user/", r.URL.Path)
			assert.Equal(t, "true", r.URL.Query().Get("edit"))
			if ck, err := r.Cookie("sessionid"); err == nil {
				gotCookie = ck.Value
			}
			_, _ = w.Write([]byte(`{"status":"ok","user":{"pk":42}}`))
		})
		sess := NewSession("u")
		sess.Cookies["sessionid"] = "s1"
		c.SetSession(sess)

		require.NoError(t, c.ValidateSession(context.Background()))
		assert.Equal(t, "s1", gotCookie)
		assert.Equal(t, "42", c.Session().UserID)
	})

	t.Run("expired", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"status":"fail","message":"login_required"}`))
		})
		c.SetSession(NewSession("u"))
		assert.ErrorIs(t, c.ValidateSession(context.Background()), ErrLoginRequired)
	})
}

func TestResolveUserID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/web_profile_info/", r.URL.Path)
		switch r.URL.Query().Get("username") {
		case "edisu_piemonte":
			_, _ = w.Write([]byte(`{"data":{"user":{"id":"5551234"}}}`))
		case "broken":
			_, _ = w.Write([]byte(`{"data":{"user":{"id":{"nested":true}}}}`))
		default:
			_, _ = w.Write([]byte(`{"data":{"user":null}}`))
		}
	})

	id, err := c.ResolveUserID(context.Background(), "edisu_piemonte")
	require.NoError(t, err)
	assert.Equal(t, "5551234", id)

	_, err = c.ResolveUserID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = c.ResolveUserID(context.Background(), "broken")
	assert.True(t, IsDecodeError(err))
}

func TestListStories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/feed/user/77/story/", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","reel":{"items":[
			{"pk":3001,"taken_at":1700000000,"media_type":1,
			 "image_versions2":{"candidates":[
				{"url":"https://cdn/small.jpg","width":320,"height":568},
				{"url":"https://cdn/large.jpg","width":1080,"height":1920}]}},
			{"id":"3002_77","media_type":2,"thumbnail_url":"https://cdn/cover.jpg"},
			{"pk":"3003","taken_at":0}
		]}}`))
	})

	stories, err := c.ListStories(context.Background(), "77")
	require.NoError(t, err)
	require.Len(t, stories, 3)

	assert.Equal(t, "3001", stories[0].ID)
	require.NotNil(t, stories[0].TakenAt)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *stories[0].TakenAt)
	assert.Equal(t, "https://cdn/large.jpg", stories[0].ImageURL)
	assert.Equal(t, domain.MediaPhoto, stories[0].MediaType)

	assert.Equal(t, "3002_77", stories[1].ID)
	assert.Nil(t, stories[1].TakenAt)
	assert.Equal(t, "https://cdn/cover.jpg", stories[1].ImageURL)
	assert.Equal(t, domain.MediaVideo, stories[1].MediaType)

	assert.Equal(t, "3003", stories[2].ID)
	assert.Nil(t, stories[2].TakenAt)
	assert.Empty(t, stories[2].ImageURL)
	assert.Equal(t, domain.MediaUnknown, stories[2].MediaType)
}

func TestListStoriesEmptyReel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","reel":null}`))
	})
	stories, err := c.ListStories(context.Background(), "77")
	require.NoError(t, err)
	assert.NotNil(t, stories)
	assert.Empty(t, stories)
}

func TestListStoriesDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","reel":{"items":[{"pk":"not-a-number-but-string","taken_at":"yesterday"}]}}`))
	})
	_, err := c.ListStories(context.Background(), "77")
	require.Error(t, err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "list stories", de.Op)
}

func TestListStoriesDirect(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/feed/reels_media/", r.URL.Path)
		assert.Equal(t, "77", r.URL.Query().Get("reel_ids"))
		_, _ = w.Write([]byte(`{"status":"ok","reels":{"77":{"items":[{"pk":9,"media_type":1}]}}}`))
	})
	stories, err := c.ListStoriesDirect(context.Background(), "77")
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "9", stories[0].ID)

	stories, err = c.ListStoriesDirect(context.Background(), "78")
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	})

	data, err := c.Download(context.Background(), "/story.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = c.Download(context.Background(), "/missing.jpg")
	assert.ErrorContains(t, err, "404")

	_, err = c.Download(context.Background(), "")
	assert.Error(t, err)
}

func TestSessionIsCopied(t *testing.T) {
	c := NewClient("", nil)
	s := NewSession("u")
	s.Cookies["sessionid"] = "one"
	c.SetSession(s)

	s.Cookies["sessionid"] = "two"
	assert.Equal(t, "one", c.Session().Cookies["sessionid"])

	got := c.Session()
	got.Cookies["sessionid"] = "three"
	assert.Equal(t, "one", c.Session().Cookies["sessionid"])
}
