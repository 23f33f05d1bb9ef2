package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/models"
	"github.com/izba-pamieci/izbabackend/repository"
)

type TagHandler struct {
	TagRepo repository.TagRepositoryInterface
}

func NewTagHandler(tagRepo repository.TagRepositoryInterface) *TagHandler {
	return &TagHandler{TagRepo: tagRepo}
}

// ListTags returns all tags in natural sort order.
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.TagRepo.ListAll()
	if err != nil {
		zap.L().Error("failed to list tags", zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

type createTagPayload struct {
	Name string `json:"name"`
}

func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var payload createTagPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid request payload")
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "tag name is required")
		return
	}

	tag := &models.Tag{Name: name}
	if err := h.TagRepo.Create(tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			WriteAPIError(w, http.StatusConflict, "tag_exists", "a tag with that name already exists")
			return
		}
		zap.L().Error("failed to create tag", zap.String("name", name), zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// DeleteTag removes a tag; asset associations go away with it.
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid tag id")
		return
	}

	if err := h.TagRepo.Delete(id); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
