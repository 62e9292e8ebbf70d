// Package instagram wraps the platform's web API: post lookup by shortcode,
// media byte retrieval and the live session identity check. All failures are
// reported through the shared error taxonomy so callers can classify them.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	igerrors "igresolver/pkg/errors"
	"igresolver/pkg/logger"
)

// throttleMarker appears in response bodies when the platform asks the
// caller to slow down, even on responses with a 200 status.
const throttleMarker = "please wait a few minutes"

// Client is an HTTP client for the platform's web API.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a client with browser-like headers. Base URL and timeout
// come from configuration so tests can point at a fake upstream.
func NewClient(baseURL string, timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"X-Requested-With": "XMLHttpRequest",
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

// SetHeader sets a custom header for all subsequent requests.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// UseSession attaches persisted session cookies to the client. Empty values
// leave the client anonymous.
func (c *Client) UseSession(sessionID, csrfToken, userAgent string) {
	var cookies []string
	if sessionID != "" {
		cookies = append(cookies, fmt.Sprintf("sessionid=%s", sessionID))
	}
	if csrfToken != "" {
		cookies = append(cookies, fmt.Sprintf("csrftoken=%s", csrfToken))
		c.headers["x-csrftoken"] = csrfToken
	}
	if len(cookies) > 0 {
		c.headers["Cookie"] = strings.Join(cookies, "; ")
	}
	if userAgent != "" {
		c.headers["User-Agent"] = userAgent
	}
}

// doRequest performs an HTTP request with the configured headers.
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, igerrors.Wrap(igerrors.TypeUpstream, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, igerrors.Wrap(igerrors.TypeUpstream, "network error", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	return resp, nil
}

// checkResponseStatus translates HTTP status codes into taxonomy errors.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return igerrors.New(igerrors.TypeNotFound, "post not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return igerrors.New(igerrors.TypeRateLimited, "upstream throttled the request")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return igerrors.Newf(igerrors.TypeAuth, "authentication required (status %d)", resp.StatusCode)
	default:
		return igerrors.Newf(igerrors.TypeUpstream, "unexpected status %d", resp.StatusCode)
	}
}

// FetchPost retrieves the metadata of a single post by shortcode.
func (c *Client) FetchPost(ctx context.Context, shortcode string) (*Post, error) {
	resp, err := c.doRequest(ctx, postURL(c.baseURL, shortcode))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, igerrors.Wrap(igerrors.TypeUpstream, "failed to read response body", err)
	}

	var envelope postResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		if isThrottleBody(string(body)) {
			return nil, igerrors.New(igerrors.TypeRateLimited, "upstream throttled the request")
		}
		return nil, igerrors.Wrap(igerrors.TypeParsing, "failed to parse post response", err)
	}

	if envelope.Status != "" && envelope.Status != "ok" {
		if isThrottleBody(envelope.Message) {
			return nil, igerrors.New(igerrors.TypeRateLimited, "upstream throttled the request")
		}
		return nil, igerrors.Newf(igerrors.TypeUpstream, "upstream returned status %q: %s", envelope.Status, envelope.Message)
	}

	if envelope.Data.ShortcodeMedia == nil {
		return nil, igerrors.Newf(igerrors.TypeNotFound, "no post for shortcode %q", shortcode)
	}

	return envelope.Data.ShortcodeMedia, nil
}

// DownloadMedia fetches the raw bytes behind a media URL.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	resp, err := c.doRequest(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, igerrors.Wrap(igerrors.TypeUpstream, "failed to read media bytes", err)
	}

	return data, nil
}

// ViewerUsername performs a live check of the session against the upstream
// and returns the logged-in username. A stale session that still loads from
// disk fails here.
func (c *Client) ViewerUsername(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, viewerURL(c.baseURL))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return "", err
	}

	var envelope viewerResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", igerrors.Wrap(igerrors.TypeParsing, "failed to parse viewer response", err)
	}

	if envelope.User.Username == "" {
		return "", igerrors.New(igerrors.TypeAuth, "session is not logged in")
	}

	return envelope.User.Username, nil
}

func isThrottleBody(body string) bool {
	return strings.Contains(strings.ToLower(body), throttleMarker)
}
