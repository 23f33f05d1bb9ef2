package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/ingest"
	"github.com/izba-pamieci/izbabackend/media"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// WriteServiceError maps pipeline errors onto HTTP statuses. Client input
// errors get specific codes; everything else collapses into a generic 500 so
// internals never leak to the kiosk.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrUnrecognizedMimeType):
		WriteAPIError(w, http.StatusBadRequest, "unrecognized_mime_type", "no file extension could be derived from the mime type")
	case errors.Is(err, media.ErrUnsupportedMimeType):
		WriteAPIError(w, http.StatusUnsupportedMediaType, "unsupported_mime_type", "only image, video and PDF uploads are supported")
	case errors.Is(err, ingest.ErrMetadataCreateFailed):
		WriteAPIError(w, http.StatusInternalServerError, "metadata_create_failed", "asset record could not be created")
	case errors.Is(err, gorm.ErrRecordNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", "no such record")
	default:
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "request could not be completed")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
