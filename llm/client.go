// Package llm provides clients for the LLM providers agents can be
// configured against, behind a single Client interface.
package llm

import (
	"context"
	"fmt"
)

// Request is one generation call. SystemPrompt and Prompt are already fully
// rendered by the caller; providers do no templating of their own.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
}

// Response is the provider's text output.
type Response struct {
	Text string
}

// Client generates text for a rendered prompt. Implementations honor ctx
// cancellation; per-call timeouts come from the caller's model profile.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Provider() string
}

// Registry resolves an agent's configured provider to a client.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client)}
	for _, c := range clients {
		r.clients[c.Provider()] = c
	}
	return r
}

func (r *Registry) Get(provider string) (Client, error) {
	c, ok := r.clients[provider]
	if !ok {
		return nil, fmt.Errorf("no client registered for provider %q", provider)
	}
	return c, nil
}

func (r *Registry) Providers() []string {
	providers := make([]string, 0, len(r.clients))
	for p := range r.clients {
		providers = append(providers, p)
	}
	return providers
}
