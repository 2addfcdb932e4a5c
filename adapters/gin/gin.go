// Package gin adapts the authentication endpoints to gin-gonic.
package gin

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lborres/portero"
	"github.com/lborres/portero/services"
)

type Adapter struct {
	engine *gin.Engine

	// ProvisionDelegated creates an account on first sight of an unknown
	// delegated subject instead of rejecting the sign-in.
	ProvisionDelegated bool
}

var _ portero.HTTPAdapter = (*Adapter)(nil)

func New(engine *gin.Engine) *Adapter {
	return &Adapter{engine: engine}
}

// RegisterRoutes mounts every base endpoint under basePath, resolving each
// operation id to its gin handler.
func (a *Adapter) RegisterRoutes(handler portero.AuthHandler, basePath string) error {
	handlers := map[string]gin.HandlerFunc{
		services.OpRegister:          a.handleRegister(handler),
		services.OpSignIn:            a.handleSignIn(handler),
		services.OpSignInDelegated:   a.handleSignInDelegated(handler),
		services.OpSignOut:           a.handleSignOut(handler),
		services.OpSignOutEverywhere: a.handleSignOutEverywhere(handler),
		services.OpGetSession:        a.handleGetSession(handler),
	}

	api := a.engine.Group(basePath)
	for _, ep := range services.BaseEndpoints() {
		h, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q", ep.Metadata.OperationID)
		}
		if ep.Metadata.Protected {
			api.Handle(ep.Method, ep.Path, a.RequireAuth(handler), h)
		} else {
			api.Handle(ep.Method, ep.Path, h)
		}
	}

	return nil
}

func (a *Adapter) handleRegister(handler portero.AuthHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input portero.RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := handler.Register(c.Request.Context(), input, c.ClientIP(), c.Request.UserAgent())
		if err != nil {
			respondAuthError(c, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func (a *Adapter) handleSignIn(handler portero.AuthHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input portero.SignInInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := handler.SignIn(c.Request.Context(), input, c.ClientIP(), c.Request.UserAgent())
		if err != nil {
			respondAuthError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func (a *Adapter) handleSignInDelegated(handler portero.AuthHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input portero.DelegatedInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		input.Provision = a.ProvisionDelegated

		result, err := handler.SignInDelegated(c.Request.Context(), input, c.ClientIP(), c.Request.UserAgent())
		if err != nil {
			respondAuthError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func (a *Adapter) handleSignOut(handler portero.AuthHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		artifact, err := extractArtifact(c)
		if err != nil {
			respondAuthError(c, err)
			return
		}

		if err := handler.SignOut(c.Request.Context(), artifact); err != nil {
			respondAuthError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "signed out successfully"})
	}
}

func (a *Adapter) handleSignOutEverywhere(handler portero.AuthHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		artifact, err := extractArtifact(c)
		if err != nil {
			respondAuthError(c, err)
			return
		}

		count, err := handler.SignOutEverywhere(c.Request.Context(), artifact)
		if err != nil {
			respondAuthError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"revoked": count})
	}
}

func (a *Adapter) handleGetSession(handler portero.AuthHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		artifact, err := extractArtifact(c)
		if err != nil {
			respondAuthError(c, err)
			return
		}

		data, err := handler.Session(c.Request.Context(), artifact)
		if err != nil {
			respondAuthError(c, err)
			return
		}

		c.JSON(http.StatusOK, data)
	}
}

func extractArtifact(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", portero.ErrMissingAuthHeader
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", portero.ErrInvalidAuthHeader
	}
	return authHeader[len("Bearer "):], nil
}
