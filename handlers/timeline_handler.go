package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/izba-pamieci/izbabackend/models"
	"github.com/izba-pamieci/izbabackend/repository"
)

type TimelineHandler struct {
	TimelineRepo repository.TimelineRepositoryInterface
}

func NewTimelineHandler(timelineRepo repository.TimelineRepositoryInterface) *TimelineHandler {
	return &TimelineHandler{TimelineRepo: timelineRepo}
}

type timelineRangePayload struct {
	DateMin      string  `json:"date_min"`
	DateMax      string  `json:"date_max"`
	Caption      *string `json:"caption"`
	CoverAssetID *uint   `json:"cover_asset_id"`
}

func (p *timelineRangePayload) parseDates() (time.Time, time.Time, error) {
	dateMin, err := time.Parse(dateLayout, p.DateMin)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date_min %q", p.DateMin)
	}
	dateMax, err := time.Parse(dateLayout, p.DateMax)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date_max %q", p.DateMax)
	}
	return dateMin, dateMax, nil
}

// ListRanges returns every timeline range in chronological order.
func (h *TimelineHandler) ListRanges(w http.ResponseWriter, r *http.Request) {
	ranges, err := h.TimelineRepo.ListAll()
	if err != nil {
		zap.L().Error("failed to list timeline ranges", zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranges)
}

func (h *TimelineHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid timeline range id")
		return
	}

	tr, err := h.TimelineRepo.GetByID(id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (h *TimelineHandler) CreateRange(w http.ResponseWriter, r *http.Request) {
	var payload timelineRangePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid request payload")
		return
	}
	dateMin, dateMax, err := payload.parseDates()
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	tr := &models.TimelineRange{
		DateMin:      dateMin,
		DateMax:      dateMax,
		Caption:      payload.Caption,
		CoverAssetID: payload.CoverAssetID,
	}
	if err := h.TimelineRepo.Create(tr); err != nil {
		zap.L().Warn("failed to create timeline range", zap.Error(err))
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

func (h *TimelineHandler) UpdateRange(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid timeline range id")
		return
	}

	var payload timelineRangePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid request payload")
		return
	}
	dateMin, dateMax, err := payload.parseDates()
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.TimelineRepo.Update(id, dateMin, dateMax, payload.Caption, payload.CoverAssetID); err != nil {
		WriteServiceError(w, err)
		return
	}

	tr, err := h.TimelineRepo.GetByID(id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (h *TimelineHandler) DeleteRange(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid timeline range id")
		return
	}

	if err := h.TimelineRepo.Delete(id); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
