package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"coinzy/internal/progress"
	"coinzy/internal/repository"
	"coinzy/internal/service"
	"coinzy/internal/validation"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, errorBody{Error: userMsg})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// respondServiceError maps domain errors to HTTP statuses. Client errors carry the error
// text; anything unexpected is logged and hidden.
func respondServiceError(w http.ResponseWriter, logMsg string, err error) {
	var vErr validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: vErr.Error()})
	case errors.Is(err, progress.ErrInvalidArgument):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, progress.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, progress.ErrInsufficientBalance),
		errors.Is(err, progress.ErrMissionNotCompleted),
		errors.Is(err, progress.ErrRewardClaimed):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, repository.ErrVersionConflict):
		respondWithError(w, http.StatusConflict, "Progress changed, please retry", logMsg, err)
	case errors.Is(err, service.ErrMissingFamily):
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: ErrInvalidJSON})
		return false
	}
	return true
}
