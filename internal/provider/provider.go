// Package provider holds the polymorphic extraction engines. Each provider
// converts a file on local disk into raw text and/or directly into
// schema-shaped data; the orchestrator depends only on the Provider interface
// and an explicitly constructed registry.
package provider

import (
	"context"

	"github.com/dgonzalezpy/documind/constants"
)

// Result carries what one provider extracted from a file.
type Result struct {
	Data    map[string]any // schema-shaped structured data
	RawText string         // raw text, when the provider produced any
}

// Provider is one extraction engine. A non-nil error from Process means the
// engine failed for this file; the orchestrator falls through to the next
// stack entry.
type Provider interface {
	Name() string
	SupportedMIMETypes() []string
	Process(ctx context.Context, path string, jsonSchema map[string]any) (Result, error)
}

// Registry is a name-keyed provider collection. Built explicitly and
// injected; there is no global registry.
type Registry struct {
	providers map[string]Provider
	order     []string
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, dup := r.providers[p.Name()]; dup {
			continue
		}
		r.providers[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Info describes one registered provider for listing endpoints and logs.
type Info struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MIMETypes []string `json:"mimeTypes"`
}

// Available lists registered providers in registration order.
func (r *Registry) Available() []Info {
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		p := r.providers[id]
		out = append(out, Info{
			ID:        id,
			Name:      constants.ProviderFriendlyName(id),
			MIMETypes: p.SupportedMIMETypes(),
		})
	}
	return out
}
