package practicum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"hwbot/internal/fault"
	logx "hwbot/pkg/logx"
)

// DefaultEndpoint is the production homework status endpoint.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// maxBodyBytes caps how much of a response body is decoded.
const maxBodyBytes = 4 << 20

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds one request. 0 keeps the client default (no timeout).
	Timeout time.Duration
}

// Client issues status requests. It never retries; the poll loop does.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("practicum token is empty")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("practicum endpoint: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	hc, err := newHTTPClient(cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, http: hc, log: log}, nil
}

func newHTTPClient(timeout time.Duration) (*http.Client, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	// The poll interval is long; health-check idle h2 connections so a dead
	// one is dropped instead of failing the next request.
	h2, err := http2.ConfigureTransports(tr)
	if err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	h2.ReadIdleTimeout = 30 * time.Second
	h2.PingTimeout = 15 * time.Second

	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.cfg.Endpoint }

// Statuses requests homework status changes since from (unix seconds)
// and returns the decoded JSON object.
//
// Every failure is reported as fault.KindAPIRequest, except a body that is
// valid JSON but not an object (fault.KindMalformedResponse).
func (c *Client) Statuses(ctx context.Context, from int64) (map[string]any, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fault.Wrap(fault.KindAPIRequest, err, "Ошибка в запросе к API")
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fault.Wrap(fault.KindAPIRequest, err, "Ошибка в запросе к API")
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.KindAPIRequest, err, fmt.Sprintf("Недоступность эндпойнта %s", c.cfg.Endpoint))
	}
	defer resp.Body.Close()

	c.log.Debug("api response",
		logx.Int("status", resp.StatusCode),
		logx.String("proto", resp.Proto),
		logx.Duration("took", time.Since(start)),
		logx.Int64("from_date", from),
	)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fault.New(fault.KindAPIRequest, "Недоступность эндпойнта %s. Статус %d", c.cfg.Endpoint, resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fault.Wrap(fault.KindAPIRequest, err, "Ошибка декодирования ответа API")
	}
	m, ok := body.(map[string]any)
	if !ok {
		return nil, fault.New(fault.KindMalformedResponse, "ответ API не является объектом")
	}
	return m, nil
}
