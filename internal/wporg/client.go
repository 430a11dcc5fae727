package wporg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL the WordPress.org plugin-information endpoint.
const DefaultBaseURL = "https://api.wordpress.org/plugins/info/1.2/"

const actionPluginInformation = "plugin_information"

const messageNotFound = "Plugin not found."

// ErrNotFound is matched by an APIError reporting an unknown slug.
var ErrNotFound = errors.New("plugin not found")

// APIError an API error.
type APIError struct {
	StatusCode int
	Message    string
}

func (a *APIError) Error() string {
	return fmt.Sprintf("%d: %s", a.StatusCode, a.Message)
}

// Is reports whether the error is ErrNotFound.
func (a *APIError) Is(target error) bool {
	return target == ErrNotFound && (a.StatusCode == http.StatusNotFound || a.Message == messageNotFound)
}

// Client for the plugin catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a catalog client.
// A nil httpClient is replaced by a traced client with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// PluginInformation looks up a plugin by slug.
func (c *Client) PluginInformation(ctx context.Context, slug string, fields Fields) (*Plugin, error) {
	if slug == "" {
		return nil, errors.New("missing plugin slug")
	}

	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := baseURL.Query()
	query.Set("action", actionPluginInformation)
	query.Set("request[slug]", slug)
	for name, include := range fields {
		if include {
			query.Set("request[fields]["+name+"]", "1")
		} else {
			query.Set("request[fields]["+name+"]", "0")
		}
	}
	baseURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call API: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, &APIError{
			Message:    errorMessage(body),
			StatusCode: resp.StatusCode,
		}
	}

	var raw map[string]interface{}
	err = json.Unmarshal(body, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	if msg, ok := raw["error"]; ok {
		return nil, &APIError{
			Message:    fmt.Sprint(msg),
			StatusCode: resp.StatusCode,
		}
	}

	plg, err := decodePlugin(raw)
	if err != nil {
		return nil, err
	}

	if plg.Slug == "" {
		plg.Slug = slug
	}

	return plg, nil
}

// decodePlugin decodes a loosely typed catalog object:
// counters are sometimes sent as strings, and missing values stay at zero.
// Names and versions come HTML-entity-encoded and are stored as plain text.
func decodePlugin(raw map[string]interface{}) (*Plugin, error) {
	var plg Plugin

	cfg := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &plg,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	err = decoder.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plugin: %w", err)
	}

	plg.Name = html.UnescapeString(plg.Name)
	plg.Version = html.UnescapeString(plg.Version)

	return &plg, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}

	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}

	return string(body)
}
