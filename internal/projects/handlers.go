package projects

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"

	"github.com/imzeyn/mockhost"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MockPattern captures the project name and the mocked path of
// /projects/<name>/<path>.
const MockPattern = `^/projects/([^/]+)/([^?]+)`

const (
	msgHello          = "Hello world!"
	msgNotExist       = "Project does not exist."
	msgExists         = "Project already exists."
	msgInvalidName    = "Invalid project name."
	msgInvalidConfig  = "Invalid project config."
	msgSaveFailed     = "Unable to save project."
	msgBrokenConfig   = "Unable to read project config."
	msgNotImplemented = "Not implemented."
)

// MockConfig is the part of a project config the mock endpoint reads.
type MockConfig struct {
	Endpoints []Endpoint `json:"endpoints"`
}

type Endpoint struct {
	Path string      `json:"path"`
	When []Condition `json:"when"`
}

// Condition answers a request to its endpoint when Method matches.
type Condition struct {
	Method string `json:"method"`
	// Delay in milliseconds before the response is sent.
	Delay    uint64       `json:"delay"`
	Response MockResponse `json:"response"`
}

// MaxMockDelay caps the delay a condition can ask for.
const MaxMockDelay = 5 * time.Minute

func (c *Condition) delay() time.Duration {
	if c.Delay >= uint64(MaxMockDelay/time.Millisecond) {
		return MaxMockDelay
	}
	return time.Duration(c.Delay) * time.Millisecond
}

type MockResponse struct {
	Status  int                 `json:"status"`
	Headers map[string]any      `json:"headers"`
	Body    jsoniter.RawMessage `json:"body"`
}

// Handlers implements the project routes on top of a Store.
type Handlers struct {
	store  *Store
	logger log.Logger

	// Sleep waits out a condition's delay. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

func NewHandlers(store *Store, logger log.Logger) *Handlers {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Handlers{store: store, logger: logger, Sleep: time.Sleep}
}

// Register wires every project route into s.
func Register(s *mockhost.Server, h *Handlers) {
	s.Get("/", h.Hello)
	s.Get("/projects/:name", h.Get)
	s.Post("/projects/:name", h.Save)
	s.Put("/projects/:name", h.Save)

	pattern := mockhost.Match(MockPattern)
	for _, method := range mockhost.EnableMethods("GET", "POST", "PUT", "PATCH", "DELETE") {
		s.Request(h.Mock, mockhost.RequestOption{Method: method, Path: pattern})
	}
}

func errorResponse(status int, msg string) *mockhost.Response {
	return mockhost.JSON(status, mockhost.NewNested().InsertString("error", msg), nil)
}

func (h *Handlers) Hello(*mockhost.Request) *mockhost.Response {
	return mockhost.JSON(http.StatusOK, mockhost.NewNested().InsertString("name", msgHello), nil)
}

// Get returns the stored config of a project verbatim.
func (h *Handlers) Get(req *mockhost.Request) *mockhost.Response {
	name := req.Param("name")
	if !ValidName(name) {
		return errorResponse(http.StatusBadRequest, msgInvalidName)
	}

	b, err := h.store.Read(name)
	switch {
	case errors.Is(err, ErrNotExist):
		return errorResponse(http.StatusNotFound, msgNotExist)
	case err != nil:
		level.Error(h.logger).Log("event", "read project", "project", name, "detail", err.Error())
		return errorResponse(http.StatusInternalServerError, msgBrokenConfig)
	}

	return mockhost.OK(string(b), map[string]string{"Content-Type": "application/json"})
}

// Save creates a project on POST and replaces it on PUT.
func (h *Handlers) Save(req *mockhost.Request) *mockhost.Response {
	name := req.Param("name")
	if !ValidName(name) {
		return errorResponse(http.StatusBadRequest, msgInvalidName)
	}

	exists := h.store.Exists(name)
	switch {
	case req.Method == string(mockhost.POST) && exists:
		return errorResponse(http.StatusBadRequest, msgExists)
	case req.Method == string(mockhost.PUT) && !exists:
		return errorResponse(http.StatusBadRequest, msgNotExist)
	}

	body := []byte(req.Body)
	if !json.Valid(body) {
		return errorResponse(http.StatusBadRequest, msgInvalidConfig)
	}

	var err error
	if req.Method == string(mockhost.POST) {
		err = h.store.Create(name, body)
	} else {
		err = h.store.Update(name, body)
	}

	switch {
	case errors.Is(err, ErrExists):
		return errorResponse(http.StatusBadRequest, msgExists)
	case errors.Is(err, ErrNotExist):
		return errorResponse(http.StatusBadRequest, msgNotExist)
	case err != nil:
		level.Error(h.logger).Log("event", "save project", "project", name, "conn_id", req.ID,
			"detail", err.Error())
		return errorResponse(http.StatusInternalServerError, msgSaveFailed)
	}

	level.Info(h.logger).Log("event", "project saved", "project", name, "method", req.Method)
	return mockhost.JSON(http.StatusOK, mockhost.NewNested().InsertString("result", "ok"), nil)
}

// Mock answers /projects/<name>/<path> with the first condition of the
// project's config whose endpoint path and method match the request.
func (h *Handlers) Mock(req *mockhost.Request) *mockhost.Response {
	name, _ := req.Match(0)
	path, _ := req.Match(1)

	if !ValidName(name) || !h.store.Exists(name) {
		return errorResponse(http.StatusBadRequest, msgNotExist)
	}

	b, err := h.store.Read(name)
	if err != nil {
		level.Error(h.logger).Log("event", "read project", "project", name, "detail", err.Error())
		return errorResponse(http.StatusInternalServerError, msgBrokenConfig)
	}

	var cfg MockConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		level.Warn(h.logger).Log("event", "decode project", "project", name, "detail", err.Error())
		return errorResponse(http.StatusInternalServerError, msgBrokenConfig)
	}

	cond, ok := cfg.Find(path, req.Method)
	if !ok {
		return mockhost.Text(http.StatusBadRequest, msgNotImplemented)
	}

	if d := cond.delay(); d > 0 {
		h.Sleep(d)
	}

	return cond.Response.toResponse()
}

// Find returns the first condition for path and method. Paths are compared
// without their leading slash, methods without regard to case.
func (c *MockConfig) Find(path, method string) (*Condition, bool) {
	path = strings.TrimPrefix(path, "/")
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if strings.TrimPrefix(ep.Path, "/") != path {
			continue
		}
		for j := range ep.When {
			if strings.EqualFold(ep.When[j].Method, method) {
				return &ep.When[j], true
			}
		}
	}
	return nil, false
}

func (r MockResponse) toResponse() *mockhost.Response {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	headers := make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		if s, ok := v.(string); ok {
			headers[k] = s
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		headers[k] = string(b)
	}

	var body string
	if len(r.Body) > 0 {
		body = string(r.Body)
	}

	return &mockhost.Response{Status: status, Body: body, Headers: headers}
}
