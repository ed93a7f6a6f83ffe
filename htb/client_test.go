package htb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(zaptest.NewLogger(t), srv.URL+"/api/v4/", "secret-token", time.Second)
}

func TestPollActiveMachine(t *testing.T) {
	var gotAuth, gotPath, gotAccept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{
			"info": {
				"id": 118,
				"name": "Bashed",
				"avatar": "/storage/avatars/bashed.png",
				"type": "Free",
				"started_at": "2026-10-17T10:00:00Z",
				"lab_server": "us-free-1",
				"isSpawning": false
			}
		}`))
	})

	status, err := c.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "/api/v4/machines/active", gotPath)
	assert.Equal(t, "application/json", gotAccept)

	assert.True(t, status.Active)
	assert.Equal(t, "Bashed", status.MachineName)
	assert.Equal(t, int64(118), status.MachineID)
	assert.Equal(t, "Free", status.Type)
	assert.Equal(t, c.origin+"/storage/avatars/bashed.png", status.Avatar)
	require.NotNil(t, status.StartedAt)
	assert.True(t, status.StartedAt.Equal(time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)))
}

func TestPollNoActiveMachine(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"null info": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"info": null}`))
		},
		"missing info": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		},
		"not found": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	}

	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			status, err := newTestClient(t, h).Poll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Status{}, status)
		})
	}
}

func TestPollFetchErrors(t *testing.T) {
	tests := map[string]struct {
		handler    http.HandlerFunc
		statusCode int
	}{
		"server error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			statusCode: http.StatusInternalServerError,
		},
		"unauthorized": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			statusCode: http.StatusUnauthorized,
		},
		"redirect to login": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/login", http.StatusFound)
			},
			statusCode: http.StatusFound,
		},
		"malformed body": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			statusCode: http.StatusOK,
		},
		"nameless machine": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"info": {"id": 1}}`))
			},
			statusCode: http.StatusOK,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newTestClient(t, tc.handler).Poll(context.Background())
			require.Error(t, err)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.statusCode, fe.StatusCode)
			assert.NotContains(t, err.Error(), "secret-token")
		})
	}
}

func TestPollNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(zaptest.NewLogger(t), url, "secret-token", time.Second)
	_, err := c.Poll(context.Background())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
}

func TestPollTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(zaptest.NewLogger(t), srv.URL, "secret-token", 50*time.Millisecond)

	start := time.Now()
	_, err := c.Poll(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Less(t, int64(time.Since(start)), int64(5*time.Second))
}

func TestUserInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/user/info", r.URL.Path)
		_, _ = w.Write([]byte(`{"info": {"id": 7, "name": "mrb3n", "rank": "Guru"}}`))
	})

	usr, err := c.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &User{ID: 7, Name: "mrb3n"}, usr)
}

func TestUserInfoMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.UserInfo(context.Background())
	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
}
