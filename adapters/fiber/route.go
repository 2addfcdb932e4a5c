// Package fiber adapts the authentication endpoints to gofiber v3.
package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/portero"
	"github.com/lborres/portero/services"
)

type Adapter struct {
	app *fiber.App

	// ProvisionDelegated creates an account on first sight of an unknown
	// delegated subject instead of rejecting the sign-in.
	ProvisionDelegated bool
}

var _ portero.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

// RegisterRoutes mounts every base endpoint under basePath, resolving each
// operation id to its fiber handler. Protected endpoints get the auth
// middleware in front.
func (a *Adapter) RegisterRoutes(handler portero.AuthHandler, basePath string) error {
	handlers := map[string]fiber.Handler{
		services.OpRegister:          a.handleRegister(handler),
		services.OpSignIn:            a.handleSignIn(handler),
		services.OpSignInDelegated:   a.handleSignInDelegated(handler),
		services.OpSignOut:           a.handleSignOut(handler),
		services.OpSignOutEverywhere: a.handleSignOutEverywhere(handler),
		services.OpGetSession:        a.handleGetSession(handler),
	}

	api := a.app.Group(basePath)
	for _, ep := range services.BaseEndpoints() {
		h, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q", ep.Metadata.OperationID)
		}
		if ep.Metadata.Protected {
			api.Add([]string{ep.Method}, ep.Path, h, a.RequireAuth(handler))
		} else {
			api.Add([]string{ep.Method}, ep.Path, h)
		}
	}

	return nil
}
