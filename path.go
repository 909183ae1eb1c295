package mockhost

import (
	"regexp"
	"strings"
)

// PatternKind selects how a PathPattern is matched against a request path.
type PatternKind byte

const (
	// PatternExact is a template such as /projects/:name, compared segment by
	// segment.
	PatternExact PatternKind = iota
	// PatternMatch is a regular expression searched anywhere in the path.
	PatternMatch
)

func (k PatternKind) String() string {
	switch k {
	case PatternExact:
		return "exact"
	case PatternMatch:
		return "match"
	default:
		return "unknown"
	}
}

// PathPattern is the path half of a Listener.
type PathPattern struct {
	Kind PatternKind
	Raw  string

	regex *regexp.Regexp
}

// Exact returns a template pattern. Segments starting with ':' bind the
// request segment at the same position to the name that follows.
func Exact(template string) PathPattern {
	return PathPattern{Kind: PatternExact, Raw: template}
}

// Match returns a regular expression pattern. It panics if expr does not
// compile, the same way a duplicate route is a fatal registration error.
func Match(expr string) PathPattern {
	return PathPattern{Kind: PatternMatch, Raw: expr, regex: regexp.MustCompile(expr)}
}

func (p PathPattern) String() string {
	return p.Kind.String() + ":" + p.Raw
}

// RequestPath is what a successful match contributes to a Request.
type RequestPath struct {
	Path    string
	Queries map[string]string
	Params  map[string]string
	Matches []string
}

// Match tests path against the pattern. The second result is false when the
// pattern rejects the path and the next listener should be tried.
func (p PathPattern) Match(path string) (RequestPath, bool) {
	switch p.Kind {
	case PatternExact:
		return p.matchExact(path)
	case PatternMatch:
		return p.matchRegex(path)
	default:
		return RequestPath{}, false
	}
}

func (p PathPattern) matchExact(path string) (RequestPath, bool) {
	patternSegments := strings.Split(p.Raw, "/")
	requestSegments := strings.Split(path, "/")

	if len(patternSegments) != len(requestSegments) {
		return RequestPath{}, false
	}

	params := map[string]string{}
	for i, segment := range patternSegments {
		if strings.HasPrefix(segment, ":") {
			params[segment[1:]] = requestSegments[i]
			continue
		}
		if segment != requestSegments[i] {
			return RequestPath{}, false
		}
	}

	return RequestPath{
		Path:    path,
		Queries: map[string]string{},
		Params:  params,
		Matches: []string{},
	}, true
}

func (p PathPattern) matchRegex(path string) (RequestPath, bool) {
	re := p.regex
	if re == nil {
		// zero-value patterns built without Match()
		var err error
		if re, err = regexp.Compile(p.Raw); err != nil {
			return RequestPath{}, false
		}
	}

	loc := re.FindStringSubmatchIndex(path)
	if loc == nil {
		return RequestPath{}, false
	}

	matches := make([]string, 0, len(loc)/2-1)
	for i := 2; i < len(loc); i += 2 {
		if loc[i] < 0 {
			return RequestPath{}, false
		}
		matches = append(matches, path[loc[i]:loc[i+1]])
	}

	return RequestPath{
		Path:    path,
		Queries: map[string]string{},
		Params:  map[string]string{},
		Matches: matches,
	}, true
}

// HandlerFunc turns a request into a response. It runs on a pool worker and
// may block.
type HandlerFunc func(request *Request) *Response

// Listener is a registered (method, pattern, handler) triple.
type Listener struct {
	Method  HTTPMethod
	Pattern PathPattern
	Handler HandlerFunc
}

// RequestOption describes where a handler registered with Server.Request
// is reachable.
type RequestOption struct {
	Method HTTPMethod
	Path   PathPattern
}
