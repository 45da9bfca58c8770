package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/fieldflow/internal/model"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL       string
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client is a thin JSON-over-HTTP implementation of Environment.
//
// Requests are throttled by a token bucket shared by every endpoint so that
// refresh bursts (foregrounding, push notifications) never hammer the
// backend.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a client. RatePerSecond <= 0 disables throttling.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:    base,
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

// Environment binds the client's requests into an Environment.
// ReverseGeocode is left to the caller: the backend does not geocode.
func (c *Client) Environment() Environment {
	return Environment{
		SignIn:        c.SignIn,
		RefreshToken:  c.RefreshToken,
		GetOrders:     c.GetOrders,
		GetPlaces:     c.GetPlaces,
		GetHistory:    c.GetHistory,
		CancelOrder:   c.CancelOrder,
		CompleteOrder: c.CompleteOrder,
	}
}

// SignIn exchanges credentials for a publishable key.
func (c *Client) SignIn(ctx context.Context, email model.Email, password string) (model.Credential, error) {
	body := map[string]string{"email": string(email), "password": password}
	var cred model.Credential
	err := c.do(ctx, http.MethodPost, "/sign-in", "", body, &cred, func(status int, raw []byte) error {
		if status != http.StatusBadRequest && status != http.StatusUnauthorized {
			return nil
		}
		var ce CognitoError
		if json.Unmarshal(raw, &ce) == nil && ce.Code != "" {
			return ce
		}
		return nil
	})
	return cred, err
}

// RefreshToken issues a new access token for the device.
func (c *Client) RefreshToken(ctx context.Context, key model.PublishableKey, device model.DeviceID) (model.Token, error) {
	body := map[string]string{"publishable_key": string(key), "device_id": string(device)}
	var out struct {
		Token model.Token `json:"access_token"`
	}
	err := c.do(ctx, http.MethodPost, "/authenticate", "", body, &out, nil)
	return out.Token, err
}

// GetOrders lists the device's orders.
func (c *Client) GetOrders(ctx context.Context, token model.Token, device model.DeviceID) ([]model.Order, error) {
	var out struct {
		Orders []model.Order `json:"orders"`
	}
	err := c.do(ctx, http.MethodGet, "/devices/"+url.PathEscape(string(device))+"/orders", token, nil, &out, expired)
	return out.Orders, err
}

// GetPlaces lists the places visited by the device.
func (c *Client) GetPlaces(ctx context.Context, token model.Token, device model.DeviceID) ([]model.Place, error) {
	var out struct {
		Places []model.Place `json:"places"`
	}
	err := c.do(ctx, http.MethodGet, "/devices/"+url.PathEscape(string(device))+"/places", token, nil, &out, expired)
	return out.Places, err
}

// GetHistory summarizes tracking since the given time.
func (c *Client) GetHistory(ctx context.Context, token model.Token, device model.DeviceID, since time.Time) (model.History, error) {
	var out model.History
	path := "/devices/" + url.PathEscape(string(device)) + "/history?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	err := c.do(ctx, http.MethodGet, path, token, nil, &out, expired)
	return out, err
}

// CancelOrder cancels an ongoing order.
func (c *Client) CancelOrder(ctx context.Context, token model.Token, device model.DeviceID, order model.OrderID) error {
	return c.orderAction(ctx, token, device, order, "cancel")
}

// CompleteOrder completes an ongoing order.
func (c *Client) CompleteOrder(ctx context.Context, token model.Token, device model.DeviceID, order model.OrderID) error {
	return c.orderAction(ctx, token, device, order, "complete")
}

func (c *Client) orderAction(ctx context.Context, token model.Token, device model.DeviceID, order model.OrderID, verb string) error {
	path := "/devices/" + url.PathEscape(string(device)) + "/orders/" + url.PathEscape(string(order)) + "/" + verb
	return c.do(ctx, http.MethodPost, path, token, nil, nil, expired)
}

// expired maps 401 responses of authenticated requests to Expired.
func expired(status int, _ []byte) error {
	if status == http.StatusUnauthorized {
		return Expired{}
	}
	return nil
}

// do performs one request. specific inspects non-2xx responses and may
// return the request-specific error; otherwise a *StatusError is returned.
func (c *Client) do(ctx context.Context, method, path string, token model.Token, in, out any, specific func(int, []byte) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.base.JoinPath(strings.SplitN(path, "?", 2)[0])
	if i := strings.IndexByte(path, '?'); i >= 0 {
		target.RawQuery = path[i+1:]
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("api request",
		"method", method,
		"path", target.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if specific != nil {
			if err := specific(resp.StatusCode, raw); err != nil {
				return err
			}
		}
		se := &StatusError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, se)
		if se.Title == "" {
			se.Title = http.StatusText(resp.StatusCode)
		}
		return se
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Payload: truncate(string(raw), 256), Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
