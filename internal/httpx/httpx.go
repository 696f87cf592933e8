package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

var (
	ErrRateLimited       = errors.New("rate limited by upstream")
	ErrBadStatus         = errors.New("unexpected upstream status")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

const defaultTimeout = 10 * time.Second

// Client wraps one resty client with the request discipline every market
// data call shares: a cache-busting `_ts` query param, explicit no-cache
// headers, and decoding of the raw body regardless of Content-Type (several
// upstreams serve JSON as text/plain).
type Client struct {
	rc *resty.Client
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := resty.New()
	rc.SetTimeout(timeout)

	return &Client{rc: rc}
}

// GetJSON performs one GET against url and unmarshals the 200 body into out.
// params and headers are merged on top of the shared discipline. Any error
// means "no result"; callers never see partially decoded data.
func (c *Client) GetJSON(ctx context.Context, url string, params map[string]string, headers map[string]string, out any) error {
	req := c.rc.R().
		SetContext(ctx).
		SetQueryParam("_ts", strconv.FormatInt(time.Now().UnixMilli(), 10)).
		SetHeader("Cache-Control", "no-cache").
		SetHeader("Pragma", "no-cache")

	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(url)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		logrus.WithField("url", url).Warn("upstream rate limit hit")
		return fmt.Errorf("get %s: %w", url, ErrRateLimited)
	case resp.StatusCode() != http.StatusOK:
		return fmt.Errorf("get %s: status %d: %w", url, resp.StatusCode(), ErrBadStatus)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w: %v", url, ErrMalformedResponse, err)
	}

	return nil
}
