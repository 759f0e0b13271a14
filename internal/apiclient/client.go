package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	Debug   bool
}

type Client struct {
	http *resty.Client
	log  *zap.Logger
}

type requestIDKey struct{}

// WithRequestID makes outgoing calls reuse the inbound request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func New(opts Options, log *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetDebug(opts.Debug).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "admin-console/1.0")

	return &Client{http: rc, log: log}
}

func (c *Client) request(ctx context.Context, ts oauth2.TokenSource) (*resty.Request, error) {
	if ts == nil {
		return nil, ErrUnauthenticated
	}
	tok, err := ts.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return nil, ErrUnauthenticated
	}

	id, _ := ctx.Value(requestIDKey{}).(string)
	if id == "" {
		id = uuid.NewString()
	}

	return c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", id).
		SetAuthScheme(tok.Type()).
		SetAuthToken(tok.AccessToken), nil
}

// decode unwraps the backend envelope. Non-2xx answers carrying error_details
// become *APIError; anything that is not the envelope is a transport failure.
func (c *Client) decode(resp *resty.Response, out any) (string, error) {
	if len(resp.Body()) == 0 && !resp.IsError() {
		return "", nil
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return "", fmt.Errorf("%w: status %d, undecodable body: %v", ErrTransport, resp.StatusCode(), err)
	}

	if resp.IsError() || !env.Success {
		details := ErrorDetails{}
		if env.ErrorDetails != nil {
			details = *env.ErrorDetails
		}
		if details.Method == "" && resp.Request != nil {
			details.Method = resp.Request.Method
		}
		return "", &APIError{Status: resp.StatusCode(), Details: details}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("%w: decode data: %v", ErrTransport, err)
		}
	}

	msg := ""
	if env.SuccessMessage != nil {
		msg = *env.SuccessMessage
	}
	return msg, nil
}

func (c *Client) List(ctx context.Context, ts oauth2.TokenSource, path string, query url.Values) (*ListPage, error) {
	req, err := c.request(ctx, ts)
	if err != nil {
		return nil, err
	}

	resp, err := req.SetQueryParamsFromValues(query).Get(path)
	if err != nil {
		c.log.Warn("list request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: GET %s: %v", ErrTransport, path, err)
	}

	var page ListPage
	msg, err := c.decode(resp, &page)
	if err != nil {
		c.log.Info("list request rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.Error(err))
		return nil, err
	}
	if page.Items == nil {
		page.Items = []map[string]any{}
	}
	page.Message = msg
	return &page, nil
}

func (c *Client) Delete(ctx context.Context, ts oauth2.TokenSource, path, id string) (string, error) {
	req, err := c.request(ctx, ts)
	if err != nil {
		return "", err
	}

	target := strings.TrimRight(path, "/") + "/" + url.PathEscape(id)
	resp, err := req.Execute(http.MethodDelete, target)
	if err != nil {
		c.log.Warn("delete request failed", zap.String("path", target), zap.Error(err))
		return "", fmt.Errorf("%w: DELETE %s: %v", ErrTransport, target, err)
	}

	return c.decode(resp, nil)
}

// BearerToken wraps a raw access token for the client.
func BearerToken(raw string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: raw, TokenType: "Bearer"})
}
