package mockhost

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var (
	json            = jsoniter.ConfigCompatibleWithStandardLibrary
	contentType     = "Content-Type"
	contentTypeText = "text/plain"
	contentTypeJSON = "application/json"
)

// Response is built by a handler and written once by the server.
type Response struct {
	Status  int
	Body    string
	Headers map[string]string
}

// JSON serializes body and always sets Content-Type to application/json,
// replacing whatever the caller put in headers.
func JSON(status int, body *Nested, headers map[string]string) *Response {
	headers = cloneHeaders(headers)
	deleteHeader(headers, contentType)
	headers[contentType] = contentTypeJSON

	return &Response{
		Status:  status,
		Body:    body.Serialize(),
		Headers: headers,
	}
}

// Marshal is like JSON for arbitrary values, encoded with jsoniter.
func Marshal(status int, v any, headers map[string]string) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	headers = cloneHeaders(headers)
	deleteHeader(headers, contentType)
	headers[contentType] = contentTypeJSON

	return &Response{Status: status, Body: string(b), Headers: headers}, nil
}

// OK returns a 200 response. Content-Type defaults to text/plain when the
// caller did not set one.
func OK(body string, headers map[string]string) *Response {
	headers = cloneHeaders(headers)
	if !hasHeader(headers, contentType) {
		headers[contentType] = contentTypeText
	}

	return &Response{Status: http.StatusOK, Body: body, Headers: headers}
}

// Text returns a response with the given status and body and no headers.
func Text(status int, body string) *Response {
	return &Response{Status: status, Body: body, Headers: map[string]string{}}
}

// NotFound is the response sent when no listener accepts a request.
func NotFound() *Response {
	return Text(http.StatusNotFound, "Not Found")
}

// WriteTo writes the response in wire format: status line, headers sorted by
// name, Content-Length, Connection: close, a blank line, then the body.
func (resp *Response) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.Grow(len(resp.Body) + 128)

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(resp.Status))
	if text := http.StatusText(resp.Status); text != "" {
		buf.WriteByte(' ')
		buf.WriteString(text)
	}
	buf.WriteString("\r\n")

	keys := make([]string, 0, len(resp.Headers))
	for k := range resp.Headers {
		// written after the caller headers
		if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "Connection") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(resp.Headers[k])
		buf.WriteString("\r\n")
	}

	buf.WriteString("Content-Length: ")
	buf.WriteString(strconv.Itoa(len(resp.Body)))
	buf.WriteString("\r\nConnection: close\r\n\r\n")
	buf.WriteString(resp.Body)

	return buf.WriteTo(w)
}

func cloneHeaders(headers map[string]string) map[string]string {
	m := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		m[k] = v
	}
	return m
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func deleteHeader(headers map[string]string, name string) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
}
