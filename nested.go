package mockhost

import (
	"math"
	"strconv"
	"strings"
)

// NestedValue is a value stored in a Nested. The implementations are
// StringValue, BoolValue, NumberValue and *Nested.
type NestedValue interface {
	appendJSON(b *strings.Builder)
}

type (
	StringValue string
	BoolValue   bool
	NumberValue float64
)

// Values are written as-is between quotes; quotes and control characters are
// not escaped.
func (v StringValue) appendJSON(b *strings.Builder) {
	b.WriteByte('"')
	b.WriteString(string(v))
	b.WriteByte('"')
}

func (v BoolValue) appendJSON(b *strings.Builder) {
	b.WriteString(strconv.FormatBool(bool(v)))
}

// NaN and the infinities have no JSON form and are written as null.
func (v NumberValue) appendJSON(b *strings.Builder) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		b.WriteString("null")
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
}

// NestedEntry is one key/value pair of a Nested.
type NestedEntry struct {
	Key   string
	Value NestedValue
}

// Nested is an ordered list of key/value pairs used to build JSON bodies.
// Inserting an existing key appends a second entry instead of replacing it.
type Nested struct {
	values []NestedEntry
}

func NewNested() *Nested {
	return &Nested{}
}

func (n *Nested) insert(key string, value NestedValue) *Nested {
	n.values = append(n.values, NestedEntry{Key: key, Value: value})
	return n
}

func (n *Nested) InsertString(key, value string) *Nested {
	return n.insert(key, StringValue(value))
}

func (n *Nested) InsertBool(key string, value bool) *Nested {
	return n.insert(key, BoolValue(value))
}

func (n *Nested) InsertNumber(key string, value float64) *Nested {
	return n.insert(key, NumberValue(value))
}

func (n *Nested) InsertNested(key string, value *Nested) *Nested {
	return n.insert(key, value)
}

func (n *Nested) Len() int {
	if n == nil {
		return 0
	}
	return len(n.values)
}

// Entries returns a copy of the pairs in insertion order.
func (n *Nested) Entries() []NestedEntry {
	if n == nil {
		return nil
	}
	return append([]NestedEntry(nil), n.values...)
}

// Serialize renders the pairs as a JSON object in insertion order, for
// example { "a": "1", "b": "2" }. An empty Nested renders as {}.
func (n *Nested) Serialize() string {
	var b strings.Builder
	n.appendJSON(&b)
	return b.String()
}

func (n *Nested) appendJSON(b *strings.Builder) {
	if n.Len() == 0 {
		b.WriteString("{}")
		return
	}

	b.WriteString("{ ")
	for i, entry := range n.values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		b.WriteString(entry.Key)
		b.WriteString(`": `)
		if entry.Value == nil {
			b.WriteString("null")
			continue
		}
		entry.Value.appendJSON(b)
	}
	b.WriteString(" }")
}
