package gin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lborres/portero"
)

// Context keys for downstream handlers.
const (
	CtxAccount = "portero_account"
	CtxSession = "portero_session"
)

// RequireAuth validates the bearer artifact and stores the resolved
// account and session in the gin context for downstream handlers.
func (a *Adapter) RequireAuth(handler portero.AuthHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		artifact, err := extractArtifact(c)
		if err != nil {
			abortAuthError(c, err)
			return
		}

		data, err := handler.Session(c.Request.Context(), artifact)
		if err != nil {
			abortAuthError(c, err)
			return
		}

		c.Set(CtxAccount, data.Account)
		c.Set(CtxSession, data.Session)

		c.Next()
	}
}

// AccountFromCtx returns the account placed by RequireAuth, or nil.
func AccountFromCtx(c *gin.Context) *portero.Account {
	v, ok := c.Get(CtxAccount)
	if !ok {
		return nil
	}
	account, _ := v.(*portero.Account)
	return account
}

// SessionFromCtx returns the session placed by RequireAuth, or nil.
func SessionFromCtx(c *gin.Context) *portero.Session {
	v, ok := c.Get(CtxSession)
	if !ok {
		return nil
	}
	session, _ := v.(*portero.Session)
	return session
}

func respondAuthError(c *gin.Context, err error) {
	status, message := mapError(err)
	c.JSON(status, gin.H{"error": message})
}

func abortAuthError(c *gin.Context, err error) {
	status, message := mapError(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// mapError maps error kinds to an HTTP status and a user-facing message.
// Authorization failures collapse into one message; the sub-reason stays
// in the server logs.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, portero.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"

	case errors.Is(err, portero.ErrAccountExists):
		return http.StatusConflict, err.Error()

	case errors.Is(err, portero.ErrMissingAuthHeader),
		errors.Is(err, portero.ErrInvalidAuthHeader):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, portero.ErrEmailRequired),
		errors.Is(err, portero.ErrInvalidEmail),
		errors.Is(err, portero.ErrPasswordRequired),
		errors.Is(err, portero.ErrPasswordTooShort),
		errors.Is(err, portero.ErrPasswordTooLong),
		errors.Is(err, portero.ErrSubjectRequired):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, portero.ErrAccountNotProvisioned):
		return http.StatusUnauthorized, err.Error()

	case portero.Terminal(err):
		return http.StatusUnauthorized, "invalid credentials or session"

	default:
		return http.StatusInternalServerError, "internal error"
	}
}
