package mockhost

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_ForcesContentType(t *testing.T) {
	resp := JSON(201, NewNested().InsertString("result", "ok"), map[string]string{
		"content-type": "text/html",
		"X-Extra":      "1",
	})

	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, `{ "result": "ok" }`, resp.Body)
	assert.Equal(t, map[string]string{"Content-Type": "application/json", "X-Extra": "1"}, resp.Headers)
}

func TestJSON_DoesNotMutateCallerHeaders(t *testing.T) {
	headers := map[string]string{"X-Extra": "1"}
	JSON(200, NewNested(), headers)
	assert.Equal(t, map[string]string{"X-Extra": "1"}, headers)
}

func TestOK(t *testing.T) {
	resp := OK("hello", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "hello", resp.Body)
	assert.Equal(t, "text/plain", resp.Headers["Content-Type"])

	resp = OK("{}", map[string]string{"content-type": "application/json"})
	assert.Equal(t, map[string]string{"content-type": "application/json"}, resp.Headers)
}

func TestMarshal(t *testing.T) {
	resp, err := Marshal(200, map[string]any{"x": []int{1, 2}}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":[1,2]}`, resp.Body)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])

	_, err = Marshal(200, func() {}, nil)
	assert.Error(t, err)
}

func TestNotFound(t *testing.T) {
	resp := NotFound()
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.NotEmpty(t, resp.Body)
	assert.Empty(t, resp.Headers)
}

func TestResponse_WriteTo(t *testing.T) {
	resp := &Response{
		Status: 200,
		Body:   "hello",
		Headers: map[string]string{
			"X-B":            "2",
			"X-A":            "1",
			"Content-Length": "999",
		},
	}

	var buf bytes.Buffer
	n, err := resp.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\nX-A: 1\r\nX-B: 2\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello",
		buf.String())
}

func TestResponse_WriteTo_ParsesAsHTTP(t *testing.T) {
	var buf bytes.Buffer
	_, err := JSON(404, NewNested().InsertString("error", "Project does not exist."), nil).WriteTo(&buf)
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Project does not exist."}`, string(body))
}

func TestResponse_WriteTo_UnknownStatus(t *testing.T) {
	var buf bytes.Buffer
	_, err := Text(599, "").WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 599\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", buf.String())
}
