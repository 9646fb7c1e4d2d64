package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cmsdeploy/uploader/pkg/log"
	"github.com/cmsdeploy/uploader/pkg/requestid"
)

const DefaultBaseURL = "https://api.hubapi.com"

// TokenSource returns the bearer token of an account.
type TokenSource func(accountID int) (string, error)

// StaticToken returns a TokenSource handing out the same token for every account.
func StaticToken(token string) TokenSource {
	return func(int) (string, error) {
		return token, nil
	}
}

type ClientOption func(c *Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// Client talks to the content management API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: NewHTTPClient(),
		tokens:     StaticToken(""),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewHTTPClient returns the HTTP client used for uploads. There is no overall
// request timeout: an upload runs until it completes or fails.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: log.NewTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}, "http"),
	}
}

// uploadFile posts localPath as the multipart "file" part, plus fields, to endpoint.
func (c *Client) uploadFile(ctx context.Context, accountID int, endpoint, localPath string, fields map[string]string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copying file into multipart: %w", err)
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return fmt.Errorf("writing form field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart writer: %w", err)
	}

	query := url.Values{}
	query.Set("portalId", strconv.Itoa(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint+"?"+query.Encode(), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(requestid.Header, requestid.Generate())
	if runID := requestid.RunID(ctx); runID != "" {
		req.Header.Set(requestid.RunHeader, runID)
	}

	token, err := c.tokens(accountID)
	if err != nil {
		return fmt.Errorf("getting access token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return parseAPIError(resp)
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Message  string `json:"message"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Message
		apiErr.Category = payload.Category
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
