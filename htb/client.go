package htb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"htbpresence/tracer"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const userAgent = "HTB Discord Rich Presence"

// Client reads the account state from the HTB v4 API.
type Client struct {
	log    *zap.Logger
	base   string
	origin string
	http   *http.Client
}

func NewClient(log *zap.Logger, base string, token string, timeout time.Duration) *Client {
	transport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}),
		Base: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &Client{
		log:    log,
		base:   strings.TrimRight(base, "/"),
		origin: originOf(base),
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			// HTB answers an expired token with a redirect to the login page.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Poll fetches the active machine instance. No active instance is reported
// as Status{Active: false}, not as an error.
func (c *Client) Poll(ctx context.Context) (status Status, err error) {
	ctx, span := tracer.Start(ctx, "htb.poll")
	defer func() {
		span.SetAttributes(
			attribute.Bool("htb.active", status.Active),
			attribute.String("htb.machine", status.MachineName),
		)
		tracer.End(span, err)
	}()

	var body activeMachineResponse
	err = c.get(ctx, "machines/active", "/machines/active", &body)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound {
			return Status{}, nil
		}
		return Status{}, err
	}

	if body.Info == nil {
		return Status{}, nil
	}
	if body.Info.Name == "" {
		return Status{}, &FetchError{
			Op:         "machines/active",
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("malformed body: active machine has no name"),
		}
	}

	return Status{
		Active:      true,
		MachineName: body.Info.Name,
		StartedAt:   parseStartedAt(body.Info.StartedAt),
		MachineID:   body.Info.ID,
		Avatar:      c.absolute(body.Info.Avatar),
		Type:        body.Info.Type,
	}, nil
}

// UserInfo returns the account the token belongs to.
func (c *Client) UserInfo(ctx context.Context) (usr *User, err error) {
	ctx, span := tracer.Start(ctx, "htb.user_info")
	defer func() { tracer.End(span, err) }()

	var body userInfoResponse
	if err := c.get(ctx, "user/info", "/user/info", &body); err != nil {
		return nil, err
	}
	if body.Info == nil {
		return nil, &FetchError{
			Op:         "user/info",
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("malformed body: missing info"),
		}
	}

	return body.Info, nil
}

func (c *Client) get(ctx context.Context, op string, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	res, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	defer res.Body.Close()

	c.log.Debug("htb response",
		zap.String("op", op),
		zap.Int("status", res.StatusCode),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 200))
		return &FetchError{
			Op:         op,
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected response: %q", strings.TrimSpace(string(snippet))),
		}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &FetchError{
			Op:         op,
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("malformed body: %w", err),
		}
	}

	return nil
}

// absolute turns site-relative asset paths such as "/storage/avatars/x.png"
// into full URLs.
func (c *Client) absolute(path string) string {
	if strings.HasPrefix(path, "/") && c.origin != "" {
		return c.origin + path
	}
	return path
}

func originOf(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
