package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/safar/go-storefront/internal/apperr"
)

// envelope is the body shape every endpoint answers with: a success flag,
// an optional message, and endpoint-specific fields.
type envelope map[string]interface{}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("encode response")
	}
}

func respondOK(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["success"] = true
	respondJSON(w, r, status, body)
}

func respondMessage(w http.ResponseWriter, r *http.Request, message string) {
	respondOK(w, r, http.StatusOK, envelope{"message": message})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInsufficientStock, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps err to a status code and a client-safe message.
// Unclassified errors are logged and reported generically.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", kind.String()).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("kind", kind.String()).Msg("request rejected")
	}

	respondJSON(w, r, status, envelope{
		"success": false,
		"message": apperr.MessageOf(err),
	})
}
