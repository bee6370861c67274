// Package gateway is the typed client for the SevaSetu REST services. One
// method per remote operation; every authenticated call sources its bearer
// token from the injected session store for the client's role.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sevasetu/session"
	"sevasetu/utils"
)

// Config wires a Client. The three base URLs may point at one process (the
// bundled demo server) or at separate deployments.
type Config struct {
	AuthURL      string
	CaregiverURL string
	CivilianURL  string
	Role         string
	Store        session.Store
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client issues authenticated requests and classifies failures. It never
// reacts to a 401 itself; that contract belongs to the state machines.
type Client struct {
	authURL      string
	caregiverURL string
	civilianURL  string
	role         string
	store        session.Store
	http         *http.Client
	log          *zap.Logger
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Client{
		authURL:      cfg.AuthURL,
		caregiverURL: cfg.CaregiverURL,
		civilianURL:  cfg.CivilianURL,
		role:         cfg.Role,
		store:        cfg.Store,
		http:         httpClient,
		log:          logger,
	}
}

// Role returns the role this client authenticates as.
func (c *Client) Role() string { return c.role }

// errorBody is the error shape both the demo server and the upstream
// services produce.
type errorBody struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Message, b.Error, b.Detail, b.Details} {
		if s != "" {
			return s
		}
	}
	return "request failed"
}

func (c *Client) do(ctx context.Context, method, url string, payload, out any, authed bool) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return networkError(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if sess, ok := c.store.Get(c.role); ok && sess.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("url", url), zap.Error(err))
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		apiErr := classifyStatus(resp.StatusCode, eb.text())
		c.log.Debug("request rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", apiErr.Kind.String()))
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Kind: KindServer, Status: resp.StatusCode, Message: "malformed response", Err: err}
		}
	}
	return nil
}
