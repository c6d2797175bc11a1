package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"marketplace_api/internal/auth"
	resp "marketplace_api/internal/lib/api/response"
	sl "marketplace_api/internal/lib/logger"
	"marketplace_api/internal/middleware/bearer"
	"marketplace_api/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Request fields are optional, empty ones keep the stored value.
type Request struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email,max=100"`
}

type Response struct {
	resp.Response
	Message string         `json:"message"`
	Profile models.Profile `json:"profile"`
}

type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, caller models.Identity, name, email string) (models.User, error)
}

// New godoc
// @Summary   Update the caller's name and/or email
// @Tags      profile
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     request body Request true "profile fields"
// @Success   200 {object} Response
// @Failure   400 {object} resp.Response
// @Failure   401 {object} resp.Response
// @Failure   403 {object} resp.Response
// @Failure   404 {object} resp.Response
// @Failure   409 {object} resp.Response
// @Router    /profile [put]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	updater ProfileUpdater,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		caller, ok := bearer.IdentityFromContext(r.Context())
		if !ok {
			log.Error("no identity in request context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Authentication token is missing or invalid"))

			return
		}

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := updater.UpdateProfile(ctx, caller, req.Name, req.Email)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrPermissionDenied):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Permission denied"))
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found"))
			case errors.Is(err, auth.ErrDuplicateEmail):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Email already in use"))
			default:
				log.Error("failed to update profile", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Profile updated",
			Profile: models.Profile{
				Name:  user.Name,
				Email: user.Email,
			},
		})
	}
}
