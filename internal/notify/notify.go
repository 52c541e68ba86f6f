package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/cleverdata/tickcopy/internal/config"
	"github.com/cleverdata/tickcopy/internal/copier"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Client reports copies to a webhook endpoint.
type Client struct {
	endpoint string
	key      string
	retries  int
	pause    time.Duration
	http     *resty.Client
	log      zerolog.Logger
}

func New(cfg config.NotifyConfig, log zerolog.Logger) *Client {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		key:      cfg.Key,
		retries:  retries,
		pause:    2 * time.Second,
		http:     resty.New().SetTimeout(timeout),
		log:      log,
	}
}

func (c *Client) Enabled() bool { return c.endpoint != "" }

// Check verifies the endpoint is reachable and accepts the key.
func (c *Client) Check(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.key).
		Get(c.endpoint + "/check")
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return fmt.Errorf("authentication failed: status %d", resp.StatusCode())
	case resp.StatusCode() != 200:
		return fmt.Errorf("unexpected response: status %d - %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Send posts one copy result, retrying with a fixed pause.
func (c *Client) Send(ctx context.Context, r copier.Result) error {
	var lastErr error
	for i := 0; i < c.retries; i++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+c.key).
			SetBody(r).
			Post(c.endpoint + "/copies")

		if err == nil && resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode())
		}
		c.log.Warn().Err(lastErr).Int("attempt", i+1).Int("seq", r.Seq).Msg("Notify attempt failed")

		if i == c.retries-1 {
			break
		}
		select {
		case <-time.After(c.pause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("notify failed after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) OnCopy(ctx context.Context, r copier.Result) error {
	if !c.Enabled() {
		return nil
	}
	return c.Send(ctx, r)
}
