package dataset

import "Go2FlowText/internal/model"

// LabelRegistry assigns integer labels to class names in first-seen order.
// It is owned by the pipeline coordinator and is not safe for concurrent use.
type LabelRegistry struct {
	names []string
	ids   map[string]int
}

// NewLabelRegistry creates an empty registry.
func NewLabelRegistry() *LabelRegistry {
	return &LabelRegistry{ids: make(map[string]int)}
}

// Register returns the id of name, assigning the next free id on first sight.
func (r *LabelRegistry) Register(name string) int {
	if id, ok := r.ids[name]; ok {
		return id
	}
	id := len(r.names)
	r.names = append(r.names, name)
	r.ids[name] = id
	return id
}

// Len returns the number of registered classes.
func (r *LabelRegistry) Len() int {
	return len(r.names)
}

// Entries returns the label table in id order.
func (r *LabelRegistry) Entries() []model.LabelEntry {
	entries := make([]model.LabelEntry, len(r.names))
	for i, name := range r.names {
		entries[i] = model.LabelEntry{Str: name, Int: i}
	}
	return entries
}
