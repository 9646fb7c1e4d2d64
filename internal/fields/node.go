package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is either an Entry or a Group of nodes.
type Node interface {
	node()
}

// Entry is a single field definition.
type Entry struct {
	Value any
}

// Group is a nested sequence of nodes.
type Group []Node

func (Entry) node() {}
func (Group) node() {}

// Serializer is implemented by entry values that produce their own plain form.
type Serializer interface {
	Serialize() (any, error)
}

// FromValue builds a node tree from decoded data: slices become groups, anything
// else becomes an entry.
func FromValue(v any) Node {
	items, ok := v.([]any)
	if !ok {
		return Entry{Value: v}
	}
	group := make(Group, 0, len(items))
	for _, item := range items {
		group = append(group, FromValue(item))
	}
	return group
}

// Flatten returns the entries of g in order, descending into nested groups at any depth.
func Flatten(g Group) []Entry {
	out := make([]Entry, 0, len(g))
	var walk func(Group)
	walk = func(g Group) {
		for _, n := range g {
			switch v := n.(type) {
			case Entry:
				out = append(out, v)
			case Group:
				walk(v)
			}
		}
	}
	walk(g)
	return out
}

// Serialize converts every entry to its plain form.
func Serialize(entries []Entry) ([]any, error) {
	out := make([]any, 0, len(entries))
	for i, e := range entries {
		s, ok := e.Value.(Serializer)
		if !ok {
			out = append(out, e.Value)
			continue
		}
		v, err := s.Serialize()
		if err != nil {
			return nil, fmt.Errorf("serializing entry %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode renders values as a JSON array indented with two spaces.
func Encode(values []any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(values); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
