package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"ccreport/internal/model"
)

const (
	loginPath            = "/mgmt/system/user/login"
	protectedObjectsPath = "/mgmt/v2/device/df/restv2/protected-objects/configure/security-settings/?includeNameSort=false"
	topTalkersPath       = "/mgmt/vrm/top-talkers/flow-detector/"
)

// StatusError is returned when the controller answers with a non-2xx status.
type StatusError struct {
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("request failed: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("request failed: %s", e.Status)
}

// Options tunes the transport used to reach a controller.
type Options struct {
	// Timeout bounds each request; 0 means no client-side limit.
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client is a thin HTTP client for one controller's management API. The
// session cookie set by Login is kept in the client's jar.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g. https://10.0.0.1).
func NewClient(baseURL string, opts Options) *Client {
	jar, _ := cookiejar.New(nil)

	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: 15 * time.Second,
	}
	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			Jar:       jar,
		},
	}
}

// BaseURL returns the controller address this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates with the controller. Unlike the other calls, a non-2xx
// answer is not an error: the status and body are returned so the caller can
// tell an inactive HA node from a broken one. err is only set when no HTTP
// answer was received.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	res, err := c.post(ctx, loginPath, creds)
	if err != nil {
		return LoginResult{}, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{StatusCode: res.StatusCode, Body: body}, nil
}

// ProtectedObjects fetches every protected object with its flow detector
// thresholds in one call.
func (c *Client) ProtectedObjects(ctx context.Context) ([]model.MonitoredObject, error) {
	var resp ProtectedObjectsResponse
	req := ProtectedObjectsRequest{ProtectedObjectNames: []string{}}
	if err := c.postJSON(ctx, protectedObjectsPath, req, &resp); err != nil {
		return nil, err
	}

	objects := make([]model.MonitoredObject, 0, len(resp.ProtectedObjects))
	for _, po := range resp.ProtectedObjects {
		objects = append(objects, po.toModel())
	}
	return objects, nil
}

// TopTalkers fetches the incoming bps/pps samples of one protocol for a
// protected object, from the given start time up to now.
func (c *Client) TopTalkers(ctx context.Context, name string, proto model.Protocol, from time.Time) (TopTalkersResponse, error) {
	var resp TopTalkersResponse
	req := TopTalkersRequest{
		ProtectedObjectName: name,
		TimeInterval:        TimeInterval{From: from.UnixMilli()},
	}
	if err := c.postJSON(ctx, topTalkersPath+string(proto), req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	res, err := c.post(ctx, path, body)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &StatusError{
			Path:       path,
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}

	decoder := json.NewDecoder(res.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
