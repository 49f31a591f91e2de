package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody bounds how much of a non-success response is kept for the
// error description.
const maxErrorBody = 4 * 1024

// Request describes one streaming request independent of the transport.
type Request struct {
	// Method defaults to POST.
	Method string

	// Path is resolved against the transport's base URL.
	Path string

	// Body is JSON encoded when non-nil.
	Body any

	// Form is form encoded when non-nil and takes precedence over Body.
	Form url.Values

	// Header carries per request headers.
	Header http.Header
}

// Transport issues a request and returns the streaming response body.
// Implementations must abort the request when ctx is cancelled and must report
// a non-success status as an error before any streaming begins.
type Transport interface {
	Open(ctx context.Context, req *Request) (io.ReadCloser, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (io.ReadCloser, error)

// Open calls f.
func (f TransportFunc) Open(ctx context.Context, req *Request) (io.ReadCloser, error) {
	return f(ctx, req)
}

// StatusError is returned by HTTPTransport when the server answers with a
// non-success status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	if e.Body == "" {
		return "stream request failed: " + status
	}

	return fmt.Sprintf("stream request failed: %s: %s", status, e.Body)
}

// HTTPTransport is a Transport over net/http.
type HTTPTransport struct {
	// BaseURL is the scheme and host of the chat backend, e.g.
	// "http://localhost:8000".
	BaseURL string

	// Client performs the requests. It should not set a Timeout since the
	// timeout would bound the whole streamed body.
	Client *http.Client

	// Header is added to every request.
	Header http.Header
}

// NewHTTPTransport returns an HTTPTransport for baseURL using client, or
// http.DefaultClient when client is nil.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPTransport{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  client,
		Header:  make(http.Header),
	}
}

// Open implements Transport.
func (t *HTTPTransport) Open(ctx context.Context, req *Request) (io.ReadCloser, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.BaseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, vs := range t.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	return resp.Body, nil
}

// encodeBody returns the request body reader and its content type.
func encodeBody(req *Request) (io.Reader, string, error) {
	switch {
	case req.Form != nil:
		return strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded", nil

	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil

	default:
		return http.NoBody, "", nil
	}
}
