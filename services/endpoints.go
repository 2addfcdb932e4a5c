package services

import (
	"fmt"

	"github.com/lborres/portero/core"
)

// Operation ids shared between the endpoint registry and the HTTP
// adapters' handler tables.
const (
	OpRegister          = "register"
	OpSignIn            = "signInWithEmailAndPassword"
	OpSignInDelegated   = "signInWithDelegatedIdentity"
	OpSignOut           = "signOut"
	OpSignOutEverywhere = "signOutEverywhere"
	OpGetSession        = "getSession"
)

// BaseEndpoints returns framework-agnostic endpoint specifications for all
// core authentication endpoints.
//
// Adapters (Fiber, Gin) share these definitions and resolve each
// OperationID to their own framework-specific handler.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/sign-up",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpRegister,
				Description: "Register an account using email and password",
			},
		},
		{
			Path:   "/sign-in",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpSignIn,
				Description: "Sign in using email and password",
			},
		},
		{
			Path:   "/sign-in/delegated",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpSignInDelegated,
				Description: "Sign in using a pre-validated delegated identity assertion",
			},
		},
		{
			Path:   "/sign-out",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpSignOut,
				Description: "Revoke the current session",
			},
		},
		{
			Path:   "/sign-out-all",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpSignOutEverywhere,
				Description: "Revoke every session of the current account",
				Protected:   true,
			},
		},
		{
			Path:   "/session",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpGetSession,
				Description: "Validate the presented artifact and return the session data",
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and detects duplicate METHOD:PATH combinations.
//
// It starts with the base authentication endpoints and supports
// registration of additional plugin endpoints.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a new registry with all base authentication
// endpoints pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	for _, ep := range BaseEndpoints() {
		reg.register(&ep)
	}

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// register adds a single endpoint, failing on a METHOD:PATH conflict.
func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	return nil
}

// RegisterPlugin registers additional plugin endpoints. If any endpoint
// conflicts with an existing one or with another endpoint in the same
// batch, nothing is registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool)
	for i := range endpoints {
		key := endpointKey(&endpoints[i])

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", endpoints[i].Method, endpoints[i].Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", endpoints[i].Method, endpoints[i].Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		r.endpoints[endpointKey(&endpoints[i])] = &endpoints[i]
	}

	return nil
}

// Endpoints returns all registered endpoints, base and plugin alike.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	return result
}
