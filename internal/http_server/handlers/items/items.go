package items

import (
	"context"
	"log/slog"
	"net/http"

	resp "marketplace_api/internal/lib/api/response"
	sl "marketplace_api/internal/lib/logger"
	"marketplace_api/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Items []models.Item `json:"items"`
}

type Lister interface {
	Items(ctx context.Context) ([]models.Item, error)
}

// New godoc
// @Summary  List catalog items
// @Tags     items
// @Produce  json
// @Success  200 {object} Response
// @Router   /items [get]
func New(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.items.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		list, err := lister.Items(r.Context())
		if err != nil {
			log.Error("failed to list items", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Items:    list,
		})
	}
}
