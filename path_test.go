package mockhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExact_BindsParams(t *testing.T) {
	rp, ok := Exact("/projects/:name").Match("/projects/my-project")
	require.True(t, ok)
	assert.Equal(t, "/projects/my-project", rp.Path)
	assert.Equal(t, map[string]string{"name": "my-project"}, rp.Params)
	assert.Empty(t, rp.Queries)
	assert.Empty(t, rp.Matches)
}

func TestExact(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		ok      bool
		params  map[string]string
	}{
		{"/", "/", true, map[string]string{}},
		{"/projects/", "/projects/", true, map[string]string{}},
		{"/projects/:name", "/files/", false, nil},
		{"/projects/:name", "/Projects/demo", false, nil},
		{"/projects/:name", "/projects/demo/extra", false, nil},
		{"/projects/:name", "/projects", false, nil},
		{"/:a/:b", "/x/y", true, map[string]string{"a": "x", "b": "y"}},
		{"/:a/static/:b", "/1/static/2", true, map[string]string{"a": "1", "b": "2"}},
		{"/:a/static/:b", "/1/other/2", false, nil},
		{"/projects/:name", "/projects/", true, map[string]string{"name": ""}},
		{"/projects/:name", "/projects/demo?x=1", true, map[string]string{"name": "demo?x=1"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			rp, ok := Exact(tt.pattern).Match(tt.path)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.params, rp.Params)
			}
		})
	}
}

func TestMatch_PositionalGroups(t *testing.T) {
	p := Match(`^/projects/([^/]+)/([^?]+)`)

	rp, ok := p.Match("/projects/demo/users/1?page=2")
	require.True(t, ok)
	assert.Equal(t, []string{"demo", "users/1"}, rp.Matches)
	assert.Empty(t, rp.Params)

	_, ok = p.Match("/projects/demo")
	assert.False(t, ok)
}

func TestMatch_GroupCountAndOrder(t *testing.T) {
	tests := []struct {
		expr string
		path string
		want []string
	}{
		{`/a`, "/x/a/y", []string{}},
		{`(\d+)`, "/items/42", []string{"42"}},
		{`/(\w+)/(\w+)/(\w+)`, "/one/two/three", []string{"one", "two", "three"}},
		{`(a)(b)?c`, "/xabc", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			rp, ok := Match(tt.expr).Match(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, rp.Matches)
		})
	}
}

func TestMatch_UnsetGroupIsNoMatch(t *testing.T) {
	_, ok := Match(`(a)(b)?c`).Match("/ac")
	assert.False(t, ok)
}

func TestMatch_InvalidExpressionPanics(t *testing.T) {
	assert.Panics(t, func() { Match(`(`) })
}

func TestPathPattern_String(t *testing.T) {
	assert.Equal(t, "exact:/projects/:name", Exact("/projects/:name").String())
	assert.Equal(t, "match:^/x", Match("^/x").String())
}
