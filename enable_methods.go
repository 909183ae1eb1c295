package mockhost

import "strings"

type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	PATCH  HTTPMethod = "PATCH"
	DELETE HTTPMethod = "DELETE"
	HEAD   HTTPMethod = "HEAD"
)

// EnableMethods normalizes the given method names, dropping blanks and
// duplicates while keeping the order they were passed in.
func EnableMethods(methods ...string) []HTTPMethod {
	m := make([]HTTPMethod, 0, len(methods))
	seen := map[HTTPMethod]bool{}
	for _, v := range methods {
		method := HTTPMethod(strings.ToUpper(strings.TrimSpace(v)))
		if method == "" || seen[method] {
			continue
		}
		seen[method] = true
		m = append(m, method)
	}
	return m
}
