package fiber

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/portero"
)

func (a *Adapter) handleRegister(handler portero.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input portero.RegisterInput
		if err := c.Bind().Body(&input); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}

		result, err := handler.Register(c.Context(), input, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			return respondAuthError(c, err)
		}

		return c.Status(http.StatusCreated).JSON(result)
	}
}

func (a *Adapter) handleSignIn(handler portero.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input portero.SignInInput
		if err := c.Bind().Body(&input); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}

		result, err := handler.SignIn(c.Context(), input, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			return respondAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

func (a *Adapter) handleSignInDelegated(handler portero.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input portero.DelegatedInput
		if err := c.Bind().Body(&input); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		input.Provision = a.ProvisionDelegated

		result, err := handler.SignInDelegated(c.Context(), input, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			return respondAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

func (a *Adapter) handleSignOut(handler portero.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		artifact, err := extractArtifact(c)
		if err != nil {
			return respondAuthError(c, err)
		}

		if err := handler.SignOut(c.Context(), artifact); err != nil {
			return respondAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"message": "signed out successfully",
		})
	}
}

func (a *Adapter) handleSignOutEverywhere(handler portero.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		artifact, err := extractArtifact(c)
		if err != nil {
			return respondAuthError(c, err)
		}

		count, err := handler.SignOutEverywhere(c.Context(), artifact)
		if err != nil {
			return respondAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"revoked": count,
		})
	}
}

func (a *Adapter) handleGetSession(handler portero.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		artifact, err := extractArtifact(c)
		if err != nil {
			return respondAuthError(c, err)
		}

		data, err := handler.Session(c.Context(), artifact)
		if err != nil {
			return respondAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(data)
	}
}

// extractArtifact reads the bearer artifact from the Authorization header.
func extractArtifact(c fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", portero.ErrMissingAuthHeader
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", portero.ErrInvalidAuthHeader
	}
	return authHeader[len("Bearer "):], nil
}

func respondAuthError(c fiber.Ctx, err error) error {
	status, message := mapError(err)
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// mapError maps error kinds to an HTTP status and a user-facing message.
// Authorization failures collapse into one message: which sub-reason fired
// stays in the server logs, not in the response.
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
