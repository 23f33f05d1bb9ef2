package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/config"
	"github.com/izba-pamieci/izbabackend/ingest"
	"github.com/izba-pamieci/izbabackend/media"
	"github.com/izba-pamieci/izbabackend/models"
	"github.com/izba-pamieci/izbabackend/repository"
)

const dateLayout = "2006-01-02"

type AssetHandler struct {
	AssetRepo repository.AssetRepositoryInterface
	TagRepo   repository.TagRepositoryInterface
	Ingest    *ingest.Service
	Cfg       config.Config
}

func NewAssetHandler(assetRepo repository.AssetRepositoryInterface, tagRepo repository.TagRepositoryInterface, ingestSvc *ingest.Service, cfg config.Config) *AssetHandler {
	return &AssetHandler{AssetRepo: assetRepo, TagRepo: tagRepo, Ingest: ingestSvc, Cfg: cfg}
}

// datePayload is the wire shape of a fuzzy date or date range.
type datePayload struct {
	DateMin       string `json:"date_min"`
	DateMax       string `json:"date_max"`
	DatePrecision string `json:"date_precision"`
	DateIsRange   bool   `json:"date_is_range"`
}

func (p *datePayload) toModel() (*models.AssetDate, error) {
	dateMin, err := time.Parse(dateLayout, p.DateMin)
	if err != nil {
		return nil, fmt.Errorf("invalid date_min %q", p.DateMin)
	}
	dateMax := dateMin
	if p.DateMax != "" {
		dateMax, err = time.Parse(dateLayout, p.DateMax)
		if err != nil {
			return nil, fmt.Errorf("invalid date_max %q", p.DateMax)
		}
	}
	precision := models.DatePrecision(p.DatePrecision)
	if precision == "" {
		precision = models.PrecisionDay
	}
	if !models.IsValidPrecision(precision) {
		return nil, fmt.Errorf("invalid date_precision %q", p.DatePrecision)
	}
	return &models.AssetDate{
		DateMin:       dateMin,
		DateMax:       dateMax,
		DatePrecision: precision,
		DateIsRange:   p.DateIsRange,
	}, nil
}

// parseFilters reads filter query parameters. When forcePublished is set the
// published filter is pinned to true regardless of what the client asked for;
// kiosk routes use that.
func parseFilters(r *http.Request, forcePublished bool) (*repository.AssetFilters, error) {
	q := r.URL.Query()
	f := &repository.AssetFilters{}

	if typesParam := q.Get("types"); typesParam != "" {
		for _, t := range strings.Split(typesParam, ",") {
			at := models.AssetType(strings.TrimSpace(t))
			switch at {
			case models.AssetTypeImage, models.AssetTypeVideo, models.AssetTypeDocument:
				f.AssetTypes = append(f.AssetTypes, at)
			default:
				return nil, fmt.Errorf("unknown asset type %q", t)
			}
		}
	}

	if desc := q.Get("q"); desc != "" {
		f.Description = &desc
	}

	if raw := q.Get("date_min"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid date_min %q", raw)
		}
		f.DateMin = &t
	}
	if raw := q.Get("date_max"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid date_max %q", raw)
		}
		f.DateMax = &t
	}

	if forcePublished {
		published := true
		f.IsPublished = &published
	} else if raw := q.Get("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid published flag %q", raw)
		}
		f.IsPublished = &published
	}

	if tagsParam := q.Get("tags"); tagsParam != "" {
		for _, raw := range strings.Split(tagsParam, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid tag id %q", raw)
			}
			f.TagIDs = append(f.TagIDs, uint(id))
		}
	}

	return f, nil
}

func parseQueryOptions(r *http.Request, forcePublished bool) (*repository.AssetQueryOptions, error) {
	filters, err := parseFilters(r, forcePublished)
	if err != nil {
		return nil, err
	}
	opts := &repository.AssetQueryOptions{Filters: filters}

	q := r.URL.Query()
	if sortParam := q.Get("sort"); sortParam != "" {
		field := repository.SortField(sortParam)
		if !repository.IsValidSortField(field) {
			return nil, fmt.Errorf("unknown sort field %q", sortParam)
		}
		opts.Sorting = &repository.AssetSorting{
			Field:      field,
			Descending: q.Get("order") == "desc",
		}
	}

	if sizeParam := q.Get("page_size"); sizeParam != "" {
		size, err := strconv.Atoi(sizeParam)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid page_size %q", sizeParam)
		}
		page, _ := strconv.Atoi(q.Get("page"))
		opts.Pagination = &repository.Pagination{Page: page, PageSize: size}
	}

	return opts, nil
}

// ListAssets serves the dashboard asset browser.
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	h.listAssets(w, r, false)
}

// ListPublishedAssets serves the public kiosk gallery; only published assets
// are ever visible here.
func (h *AssetHandler) ListPublishedAssets(w http.ResponseWriter, r *http.Request) {
	h.listAssets(w, r, true)
}

func (h *AssetHandler) listAssets(w http.ResponseWriter, r *http.Request, publicOnly bool) {
	opts, err := parseQueryOptions(r, publicOnly)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	assets, err := h.AssetRepo.GetAll(opts)
	if err != nil {
		zap.L().Error("failed to list assets", zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	total, err := h.AssetRepo.GetCount(opts.Filters)
	if err != nil {
		zap.L().Error("failed to count assets", zap.Error(err))
		WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assets": assets,
		"total":  total,
	})
}

// GetRandomAssets serves the kiosk idle-screen rotation.
func (h *AssetHandler) GetRandomAssets(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r, true)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	n := 10
	if raw := r.URL.Query().Get("count"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			n = parsed
		}
	}

	assets, err := h.AssetRepo.GetRandom(n, filters)
	if err != nil {
		zap.L().Error("failed to pick random assets", zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// GetStats serves collection statistics for the dashboard.
func (h *AssetHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r, false)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	stats, err := h.AssetRepo.GetStats(filters)
	if err != nil {
		zap.L().Error("failed to compute asset stats", zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetAsset serves one asset by id.
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid asset id")
		return
	}

	asset, err := h.AssetRepo.GetByID(id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// UploadAsset accepts a multipart form with a "file" part plus optional
// description and date fields, and runs it through the ingestion pipeline.
func (h *AssetHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "missing file upload")
		return
	}
	defer file.Close()

	mimeType := media.NormalizeMimeType(header.Header.Get("Content-Type"))
	if media.IsGenericMimeType(mimeType) {
		sniffed, sniffErr := media.SniffMimeType(file)
		if sniffErr == nil {
			mimeType = sniffed
		}
		if _, seekErr := file.Seek(0, 0); seekErr != nil {
			zap.L().Error("failed to rewind upload after sniffing", zap.Error(seekErr))
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "upload could not be read")
			return
		}
	}

	payload := ingest.NewAsset{MimeType: mimeType}

	if desc := strings.TrimSpace(r.FormValue("description")); desc != "" {
		if len(desc) > h.Cfg.MaxDescriptionLen {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "description too long")
			return
		}
		payload.Description = &desc
	}

	if dateMin := r.FormValue("date_min"); dateMin != "" {
		dp := datePayload{
			DateMin:       dateMin,
			DateMax:       r.FormValue("date_max"),
			DatePrecision: r.FormValue("date_precision"),
		}
		dp.DateIsRange, _ = strconv.ParseBool(r.FormValue("date_is_range"))
		date, err := dp.toModel()
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		payload.Date = date
	}

	asset, err := h.Ingest.UploadAsset(r.Context(), file, payload)
	if err != nil {
		zap.L().Warn("asset upload failed", zap.String("mime", mimeType), zap.Error(err))
		WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}

// updatePayload is the wire shape of an asset edit. The date member is
// tri-state: absent leaves it alone, null clears it, an object replaces it.
type updatePayload struct {
	Description *string         `json:"description"`
	IsPublished *bool           `json:"is_published"`
	MimeType    *string         `json:"mime_type"`
	Date        json.RawMessage `json:"date"`
	TagIDs      *[]uint         `json:"tag_ids"`
}

func (h *AssetHandler) toChanges(p updatePayload) (ingest.AssetChanges, error) {
	changes := ingest.AssetChanges{
		Description: p.Description,
		IsPublished: p.IsPublished,
		MimeType:    p.MimeType,
		TagIDs:      p.TagIDs,
	}

	if p.Description != nil && len(*p.Description) > h.Cfg.MaxDescriptionLen {
		return changes, fmt.Errorf("description too long")
	}

	if len(p.Date) > 0 {
		if string(p.Date) == "null" {
			changes.Date = &repository.DateUpdate{Clear: true}
		} else {
			var dp datePayload
			if err := json.Unmarshal(p.Date, &dp); err != nil {
				return changes, fmt.Errorf("invalid date payload")
			}
			date, err := dp.toModel()
			if err != nil {
				return changes, err
			}
			changes.Date = &repository.DateUpdate{Date: date}
		}
	}

	if p.TagIDs != nil && len(*p.TagIDs) > 0 {
		count, err := h.TagRepo.CountExisting(*p.TagIDs)
		if err != nil {
			return changes, err
		}
		unique := make(map[uint]bool)
		for _, id := range *p.TagIDs {
			unique[id] = true
		}
		if count != int64(len(unique)) {
			return changes, fmt.Errorf("one or more tag ids do not exist")
		}
	}

	return changes, nil
}

// UpdateAsset edits a single asset.
func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid asset id")
		return
	}

	var payload updatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid request payload")
		return
	}
	changes, err := h.toChanges(payload)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.Ingest.UpdateAsset(r.Context(), id, changes); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Error("asset update failed", zap.Uint("asset_id", id), zap.Error(err))
		}
		WriteServiceError(w, err)
		return
	}

	asset, err := h.AssetRepo.GetByID(id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

type bulkUpdatePayload struct {
	IDs     []uint        `json:"ids"`
	Changes updatePayload `json:"changes"`
}

// UpdateAssets edits a batch of assets atomically: any failure rolls back the
// whole batch.
func (h *AssetHandler) UpdateAssets(w http.ResponseWriter, r *http.Request) {
	var payload bulkUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid request payload")
		return
	}
	if len(payload.IDs) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "no asset ids given")
		return
	}

	changes, err := h.toChanges(payload.Changes)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.Ingest.UpdateAssets(r.Context(), payload.IDs, changes); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Error("bulk asset update failed", zap.Uints("asset_ids", payload.IDs), zap.Error(err))
		}
		WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": len(payload.IDs)})
}

type bulkDeletePayload struct {
	IDs []uint `json:"ids"`
}

// DeleteAsset removes one asset with its blob and thumbnail.
func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid asset id")
		return
	}

	if _, err := h.AssetRepo.GetByID(id); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := h.Ingest.DeleteAssets(r.Context(), id); err != nil {
		zap.L().Error("asset delete failed", zap.Uint("asset_id", id), zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAssets removes a batch of assets; missing ids are skipped.
func (h *AssetHandler) DeleteAssets(w http.ResponseWriter, r *http.Request) {
	var payload bulkDeletePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid request payload")
		return
	}
	if len(payload.IDs) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "no asset ids given")
		return
	}

	if err := h.Ingest.DeleteAssets(r.Context(), payload.IDs...); err != nil {
		zap.L().Error("bulk asset delete failed", zap.Uints("asset_ids", payload.IDs), zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
