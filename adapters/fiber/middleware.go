package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/portero"
)

// Context keys for downstream handlers.
const (
	LocalAccount = "portero_account"
	LocalSession = "portero_session"
)

// RequireAuth validates the bearer artifact and stores the resolved
// account and session in the request locals for downstream handlers.
func (a *Adapter) RequireAuth(handler portero.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		artifact, err := extractArtifact(c)
		if err != nil {
			return respondAuthError(c, err)
		}

		data, err := handler.Session(c.Context(), artifact)
		if err != nil {
			return respondAuthError(c, err)
		}

		c.Locals(LocalAccount, data.Account)
		c.Locals(LocalSession, data.Session)

		return c.Next()
	}
}

// AccountFromCtx returns the account placed by RequireAuth, or nil.
func AccountFromCtx(c fiber.Ctx) *portero.Account {
	account, _ := c.Locals(LocalAccount).(*portero.Account)
	return account
}

// SessionFromCtx returns the session placed by RequireAuth, or nil.
func SessionFromCtx(c fiber.Ctx) *portero.Session {
	session, _ := c.Locals(LocalSession).(*portero.Session)
	return session
}
