package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"marketplace_api/internal/auth"
	resp "marketplace_api/internal/lib/api/response"
	sl "marketplace_api/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Response struct {
	resp.Response
	AccessToken string `json:"access_token"`
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// New godoc
// @Summary  Exchange a refresh token for a new access token
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    request body Request true "refresh token"
// @Success  200 {object} Response
// @Failure  400 {object} resp.Response
// @Failure  401 {object} resp.Response
// @Router   /auth/refresh [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	refresher Refresher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Refresh token not found"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		accessToken, err := refresher.Refresh(ctx, req.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Refresh token expired"))
			case errors.Is(err, auth.ErrTokenInvalid):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Refresh token is invalid"))
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("User not found"))
			default:
				log.Error("failed to refresh token", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("Access token refreshed")

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			AccessToken: accessToken,
		})
	}
}
