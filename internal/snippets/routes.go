package snippets

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
)

// RetrieveRequest is the body of a retrieve-by-id call.
type RetrieveRequest struct {
	IDs []string `json:"ids"`
}

// RegisterRoutes mounts the snippet retrieve endpoint.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/v1/context/retrieve", handleRetrieve(svc))
}

func handleRetrieve(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RetrieveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteHTTP(w, apperr.New(apperr.MalformedInput, "decoding retrieve request", err))
			return
		}

		payloads, err := svc.Fetch(r.Context(), req.IDs)
		if err != nil {
			apperr.WriteHTTP(w, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, payloads)
	}
}
