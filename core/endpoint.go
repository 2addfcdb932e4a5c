package core

// EndpointProvider provides a list of endpoints to register dynamically.
type EndpointProvider interface {
	GetEndpoints() []Endpoint
}

// Endpoint is a framework-agnostic route specification. Adapters resolve
// the OperationID to their own handler implementation.
type Endpoint struct {
	Path     string
	Method   string
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string

	// Protected endpoints require a validated bearer artifact.
	Protected bool
}
