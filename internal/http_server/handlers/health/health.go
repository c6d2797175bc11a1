package health

import (
	"net/http"

	resp "marketplace_api/internal/lib/api/response"

	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Message string `json:"message"`
}

// New godoc
// @Summary  Liveness probe
// @Tags     health
// @Produce  json
// @Success  200 {object} Response
// @Router   / [get]
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "API server is running!",
		})
	}
}
