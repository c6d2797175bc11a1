package bearer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"marketplace_api/internal/auth"
	resp "marketplace_api/internal/lib/api/response"
	sl "marketplace_api/internal/lib/logger"
	"marketplace_api/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

var ErrMissingOrMalformed = errors.New("authorization header is missing or malformed")

// Identifier resolves an access token to the stored caller.
type Identifier interface {
	Identify(ctx context.Context, accessToken string) (models.Identity, error)
}

type ctxKey struct{}

// New returns middleware that admits only requests carrying a valid
// "Authorization: Bearer <token>" header for an existing user.
func New(log *slog.Logger, identifier Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.bearer"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, err := tokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				log.Debug("rejected request", sl.Err(err))
				unauthorized(w, r, "Authentication token is missing or invalid")
				return
			}

			id, err := identifier.Identify(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					unauthorized(w, r, "Token has expired")
				case errors.Is(err, auth.ErrTokenInvalid):
					unauthorized(w, r, "Token is invalid")
				case errors.Is(err, auth.ErrUserNotFound):
					unauthorized(w, r, "User not found")
				default:
					log.Error("failed to identify caller", sl.Err(err))
					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, resp.Error("Internal error"))
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		}

		return http.HandlerFunc(fn)
	}
}

// RequireRole refuses callers whose resolved role is not role.
// It must be mounted after New.
func RequireRole(log *slog.Logger, role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok || id.Role != role {
				log.Warn("permission denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("email", id.Email),
					slog.String("role", string(id.Role)),
				)

				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Permission denied"))
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(models.Identity)
	return id, ok
}

func tokenFromHeader(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingOrMalformed
	}

	return parts[1], nil
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error(msg))
}
