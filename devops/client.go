package devops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/viant/devops-mcp/internal/logging"
)

// DefaultAPIVersion is sent when no api-version is configured.
const DefaultAPIVersion = "7.1"

const maxErrorBody = 512

// ErrOrganizationURL is returned when the organization URL is missing or invalid.
var ErrOrganizationURL = errors.New("AZURE_DEVOPS_ORG_URL must be an absolute http(s) URL")

// APIError is returned for non 2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("azure devops request failed (status %d): %s", e.StatusCode, e.Body)
}

// Client calls the Azure DevOps REST API of one organization.
type Client struct {
	baseURL    *url.URL
	apiVersion string
	credential Credential
	httpClient *http.Client
	log        *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(c *Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClientLogger sets the operational logger.
func WithClientLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client for organizationURL, e.g. https://dev.azure.com/acme.
func NewClient(organizationURL, apiVersion string, credential Credential, options ...ClientOption) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimRight(organizationURL, "/"))
	if err != nil || organizationURL == "" || (baseURL.Scheme != "http" && baseURL.Scheme != "https") || baseURL.Host == "" {
		return nil, ErrOrganizationURL
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	ret := &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		credential: credential,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.Nop(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret, nil
}

// Get fetches path relative to the organization URL and decodes the JSON body into target.
func (c *Client) Get(ctx context.Context, path string, query url.Values, target interface{}) error {
	endpoint := c.baseURL.JoinPath(path)
	values := url.Values{}
	for k, v := range query {
		values[k] = v
	}
	values.Set("api-version", c.apiVersion)
	endpoint.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.credential != nil {
		if err := c.credential.Authorize(ctx, req); err != nil {
			return fmt.Errorf("failed to authorize request: %w", err)
		}
	}
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call azure devops: %w", err)
	}
	defer resp.Body.Close()
	c.log.Debug("azure devops request", "path", endpoint.Path, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
