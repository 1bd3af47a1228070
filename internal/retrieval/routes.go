package retrieval

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
)

// RegisterRoutes mounts the answer endpoint.
func RegisterRoutes(r chi.Router, o *Orchestrator) {
	r.Post("/v1/stage1/answer", handleAnswer(o))
}

func handleAnswer(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteHTTP(w, apperr.New(apperr.MalformedInput, "decoding answer request", err))
			return
		}

		resp, err := o.Run(r.Context(), req)
		if err != nil {
			apperr.WriteHTTP(w, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, resp)
	}
}
