package generation

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured providers and the default selections.
// It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	text         map[string]TextGenerator
	image        map[string]ImageGenerator
	defaultText  string
	defaultImage string
}

// NewRegistry creates an empty registry with the given default provider names.
func NewRegistry(defaultText, defaultImage string) *Registry {
	return &Registry{
		text:         make(map[string]TextGenerator),
		image:        make(map[string]ImageGenerator),
		defaultText:  defaultText,
		defaultImage: defaultImage,
	}
}

// RegisterText adds a text provider under its Name.
func (r *Registry) RegisterText(g TextGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text[g.Name()] = g
}

// RegisterImage adds an image provider under its Name.
func (r *Registry) RegisterImage(g ImageGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.image[g.Name()] = g
}

// Text returns the text provider called name, or the default provider when
// name is empty.
func (r *Registry) Text(name string) (TextGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultText
	}
	g, ok := r.text[name]
	if !ok {
		return nil, fmt.Errorf("%w: text provider %q (available: %v)", ErrUnknownProvider, name, sortedKeys(r.text))
	}
	return g, nil
}

// Image returns the image provider called name, or the default provider
// when name is empty.
func (r *Registry) Image(name string) (ImageGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultImage
	}
	g, ok := r.image[name]
	if !ok {
		return nil, fmt.Errorf("%w: image provider %q (available: %v)", ErrUnknownProvider, name, sortedKeys(r.image))
	}
	return g, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
