package mockhost

// RouteTable is the frozen, ordered list of listeners a serving session
// dispatches against. It is never mutated after construction, so workers
// read it without locking.
type RouteTable struct {
	listeners []Listener
}

func newRouteTable(listeners []Listener) *RouteTable {
	return &RouteTable{listeners: append([]Listener(nil), listeners...)}
}

func (t *RouteTable) Len() int {
	return len(t.listeners)
}

// Listeners returns a copy of the table in registration order.
func (t *RouteTable) Listeners() []Listener {
	return append([]Listener(nil), t.listeners...)
}

// Find returns the first listener, in registration order, whose method
// equals the request method and whose pattern accepts the request path.
func (t *RouteTable) Find(method, path string) (*Listener, RequestPath, bool) {
	for i := range t.listeners {
		l := &t.listeners[i]
		if string(l.Method) != method {
			continue
		}
		if rp, ok := l.Pattern.Match(path); ok {
			return l, rp, true
		}
	}
	return nil, RequestPath{}, false
}
