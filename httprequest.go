package mockhost

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMalformedStartLine = errors.New("malformed request start line")
	ErrBodyTooLarge       = errors.New("request body too large")
)

// Request is a single decoded request. It is created per connection and
// handed to exactly one handler.
type Request struct {
	// ID identifies the connection the request arrived on, for log correlation.
	ID         string
	RemoteAddr string

	Method  string
	Path    string
	Version string

	// Headers holds one value per key; a repeated header keeps its last value.
	Headers map[string]string
	Body    string

	// Queries is always empty, the query string is not parsed.
	Queries map[string]string

	// Params is filled by Exact patterns, Matches by Match patterns.
	Params  map[string]string
	Matches []string
}

// DecodeOptions tunes DecodeRequest.
type DecodeOptions struct {
	// MaxBodyBytes rejects requests declaring a larger Content-Length.
	// Zero means no limit.
	MaxBodyBytes int64
}

// Header returns the value of the named header, matching the name without
// regard to case.
func (r *Request) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Param returns a parameter bound by an Exact pattern.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// Match returns the i-th (zero-based) capture of a Match pattern.
func (r *Request) Match(i int) (string, bool) {
	if i < 0 || i >= len(r.Matches) {
		return "", false
	}
	return r.Matches[i], true
}

func (r *Request) apply(rp RequestPath) {
	r.Path = rp.Path
	r.Queries = rp.Queries
	r.Params = rp.Params
	r.Matches = rp.Matches
}

// DecodeRequest reads one request from rd: the start line, headers up to the
// blank line and, for POST and PUT, a body of exactly Content-Length bytes.
func DecodeRequest(rd io.Reader, opts DecodeOptions) (*Request, error) {
	br, ok := rd.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(rd)
	}

	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStartLine, err)
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedStartLine, strings.TrimSpace(line))
	}

	req := &Request{
		ID:      uuid.NewString(),
		Method:  strings.ToUpper(parts[0]),
		Path:    parts[1],
		Version: parts[2],
		Headers: map[string]string{},
		Queries: map[string]string{},
		Params:  map[string]string{},
		Matches: []string{},
	}

	if err := readHeaders(br, req.Headers); err != nil {
		return nil, err
	}

	if req.Method != string(POST) && req.Method != string(PUT) {
		return req, nil
	}

	length, err := strconv.ParseInt(req.Header("Content-Length"), 10, 64)
	if err != nil || length <= 0 {
		return req, nil
	}
	if opts.MaxBodyBytes > 0 && length > opts.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, length, opts.MaxBodyBytes)
	}

	// grows with the bytes actually received, not the declared length
	var body bytes.Buffer
	if _, err := io.CopyN(&body, br, length); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	req.Body = body.String()

	return req, nil
}

func readHeaders(br *bufio.Reader, headers map[string]string) error {
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read headers: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			return nil
		}

		if key, value, found := strings.Cut(line, ":"); found {
			headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}

		if err == io.EOF {
			return nil
		}
	}
}
