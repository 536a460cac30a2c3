// Package restapi is the HTTP client for the remote catalog service. One
// Client implements the API boundary of all three stores (session,
// category, item); the credential cookie set by the login flow rides along
// on every mutating request via the client's cookie jar.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-market-console/apierror"
	"github.com/jrsteele09/go-market-console/session"
	"github.com/jrsteele09/go-market-console/upload"
)

const (
	credentialCookie  = "token"
	defaultTimeout    = 30 * time.Second
	maxErrBodyExcerpt = 512
)

// Client talks to the remote catalog service.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     zerolog.Logger

	mu     sync.Mutex
	bearer string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger; the default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is
// attached if the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a Client for the given base URL.
func New(baseURL string, options ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[restapi.New] invalid base URL")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("[restapi.New] base URL must be absolute")
	}

	c := &Client{
		baseURL: parsed,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "[restapi.New] cookiejar.New")
		}
		c.http.Jar = jar
	}
	return c, nil
}

// SetCredential primes the client with a credential token: it is sent as a
// bearer header and mirrored into the cookie jar, matching what the login
// flow would have set.
func (c *Client) SetCredential(token string) {
	c.mu.Lock()
	c.bearer = token
	c.mu.Unlock()
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:   credentialCookie,
		Value:  token,
		Path:   "/",
		Secure: c.baseURL.Scheme == "https",
	}})
}

// ClearCredential drops the bearer token and expires the credential
// cookie.
func (c *Client) ClearCredential() {
	c.mu.Lock()
	c.bearer = ""
	c.mu.Unlock()
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:   credentialCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
}

func (c *Client) credential() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearer
}

// do runs one request against the service, mapping transport failures and
// error statuses onto the shared taxonomy and decoding a 2xx JSON body
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, contentType string, body io.Reader, out any) error {
	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return errors.Wrap(err, "[Client.do] NewRequestWithContext")
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer := c.credential(); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	log := c.log.With().Str("requestID", requestID).Str("method", method).Str("path", path).Logger()
	log.Debug().Msg("request")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("transport failure")
		return &apierror.NetworkError{Op: method, URL: target.String(), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return c.statusError(resp, log)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[Client.do] decoding %s %s response", method, path)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response, log zerolog.Logger) error {
	excerpt := readExcerpt(resp.Body)
	log.Warn().Int("status", resp.StatusCode).Str("body", excerpt).Msg("error response")

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &session.AuthenticationError{Reason: "session rejected by server"}
	case http.StatusForbidden:
		return &apierror.PermissionError{Message: excerpt}
	case http.StatusNotFound:
		return errors.Wrap(apierror.ErrNotFound, excerpt)
	default:
		return &apierror.StatusError{StatusCode: resp.StatusCode, Body: excerpt}
	}
}

func readExcerpt(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrBodyExcerpt))
	return strings.TrimSpace(string(data))
}

// getJSON issues a GET and decodes the response.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// postJSON issues a POST with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "[Client.postJSON] Marshal")
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), out)
}

// patchJSON issues a PATCH with a JSON body.
func (c *Client) patchJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "[Client.patchJSON] Marshal")
	}
	return c.do(ctx, http.MethodPatch, path, "application/json", bytes.NewReader(body), out)
}

// doMultipart issues a multipart request with the given string fields and
// an optional image part.
func (c *Client) doMultipart(ctx context.Context, method, path string, fields map[string]string, imageField string, image *upload.Image, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return errors.Wrapf(err, "[Client.doMultipart] field %q", name)
		}
	}
	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, imageField, image.Filename))
		header.Set("Content-Type", image.ContentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return errors.Wrap(err, "[Client.doMultipart] CreatePart")
		}
		if _, err := part.Write(image.Data); err != nil {
			return errors.Wrap(err, "[Client.doMultipart] writing image")
		}
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "[Client.doMultipart] Close")
	}

	return c.do(ctx, method, path, writer.FormDataContentType(), &buf, out)
}
