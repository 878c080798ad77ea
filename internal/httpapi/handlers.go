package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/YoadTamar/aws-hw2/directory"
)

type createRecordRequest struct {
	Name     string   `json:"name" validate:"required"`
	Category string   `json:"category" validate:"required"`
	Region   string   `json:"region" validate:"required"`
	Rating   *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
}

type ratingRequest struct {
	Name   string   `json:"name" validate:"required"`
	Rating *float64 `json:"rating" validate:"required"`
}

type successResponse struct {
	Success bool `json:"success"`
}

var okResponse = successResponse{Success: true}

func (h *Handler) configEcho(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return badInput("malformed request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return requestValidation(err)
	}
	return nil
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	record := directory.Record{Name: req.Name, Category: req.Category, Region: req.Region}
	if req.Rating != nil {
		record.Rating = *req.Rating
	}
	if err := h.svc.CreateRecord(r.Context(), record); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.logger.Info("record created", zap.String("name", record.Name))
	writeJSON(w, http.StatusOK, okResponse)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.GetRecord(r.Context(), pathParam(r, "name"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if err := h.svc.DeleteRecord(r.Context(), name); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.logger.Info("record deleted", zap.String("name", name))
	writeJSON(w, http.StatusOK, okResponse)
}

func (h *Handler) submitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if _, err := h.svc.SubmitRating(r.Context(), req.Name, *req.Rating); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	minRating, err := floatQuery(r, "minRating")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	records, err := h.svc.ListByCategory(r.Context(), pathParam(r, "category"), limit, minRating)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) listByRegion(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	records, err := h.svc.ListByRegion(r.Context(), pathParam(r, "region"), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) listByRegionAndCategory(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	records, err := h.svc.ListByRegionAndCategory(r.Context(),
		pathParam(r, "region"), pathParam(r, "category"), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// pathParam returns the decoded value of a route parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// intQuery returns 0 for an absent parameter, which the service treats as the default.
func intQuery(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badInput(key + " must be an integer")
	}
	return v, nil
}

func floatQuery(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badInput(key + " must be a number")
	}
	return v, nil
}
