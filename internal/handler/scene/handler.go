// Package scene exposes the mutation and query API of the document
// store. Every successful mutation answers with the committed entity,
// the same value the change event carries to attached viewers.
package scene

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/svgstudio/server/internal/model/scene"
	"github.com/svgstudio/server/internal/service/session"
	"github.com/svgstudio/server/internal/service/suggest"
	"github.com/svgstudio/server/internal/svg"
	"github.com/svgstudio/server/pkg/utils"
)

// Handler serves the REST surface of the scene store.
type Handler struct {
	store      *session.Store
	suggestSvc *suggest.Service
}

// New creates the scene handler. suggestSvc may be nil.
func New(store *session.Store, suggestSvc *suggest.Service) *Handler {
	return &Handler{store: store, suggestSvc: suggestSvc}
}

// RegisterRoutes mounts the scene routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/canvas", h.handleCreateCanvas)
	r.Post("/canvas/reset", h.handleResetCanvas)
	r.Post("/elements", h.handleAddElement)
	r.Patch("/elements/{elementID}", h.handleUpdateElement)
	r.Delete("/elements/{elementID}", h.handleRemoveElement)
	r.Post("/elements/{elementID}/animations", h.handleAddAnimation)
	r.Delete("/animations/{animationID}", h.handleRemoveAnimation)
	r.Post("/shapes/polygon", h.handleAddPolygon)
	r.Post("/shapes/star", h.handleAddStar)
	r.Post("/prompts", h.handleRecordPrompt)
	r.Get("/snapshot", h.handleSnapshot)
	r.Get("/export", h.handleExport)
}

// sessionKey resolves the session a request operates on. Requests that
// name no session share the default one.
func sessionKey(r *http.Request) string {
	if key := strings.TrimSpace(r.URL.Query().Get("session")); key != "" {
		return key
	}
	return session.DefaultKey
}

// respondStoreError maps store errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	var verr *scene.ValidationError
	if errors.As(err, &verr) {
		utils.RespondError(w, http.StatusBadRequest, verr.Error())
		return
	}

	var nerr *scene.NotFoundError
	if errors.As(err, &nerr) {
		utils.RespondError(w, http.StatusNotFound, nerr.Error())
		return
	}

	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) handleCreateCanvas(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	canvas, err := h.store.CreateCanvas(r.Context(), sessionKey(r), payload.Width, payload.Height, payload.Prompt)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, canvas)
}

func (h *Handler) handleResetCanvas(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	canvas, err := h.store.ResetCanvas(r.Context(), sessionKey(r), payload.Width, payload.Height)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, canvas)
}

func (h *Handler) handleAddElement(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CanvasID   string           `json:"canvasId"`
		Type       string           `json:"type"`
		Properties scene.Properties `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	element, err := h.store.AddElement(r.Context(), sessionKey(r), payload.CanvasID, payload.Type, payload.Properties)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, element)
}

func (h *Handler) handleUpdateElement(w http.ResponseWriter, r *http.Request) {
	elementID := chi.URLParam(r, "elementID")

	var payload struct {
		Properties scene.Properties `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload.Properties) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "properties is required")
		return
	}

	element, err := h.store.UpdateElement(r.Context(), sessionKey(r), elementID, payload.Properties)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, element)
}

// handleRemoveElement deletes an element and its animations. Removing
// an unknown id succeeds without effect, so deletes can be retried.
func (h *Handler) handleRemoveElement(w http.ResponseWriter, r *http.Request) {
	h.store.RemoveElement(r.Context(), sessionKey(r), chi.URLParam(r, "elementID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddAnimation(w http.ResponseWriter, r *http.Request) {
	elementID := chi.URLParam(r, "elementID")

	var payload struct {
		Attribute string             `json:"attribute"`
		From      any                `json:"from"`
		To        any                `json:"to"`
		Duration  float64            `json:"duration"`
		Repeat    *scene.RepeatCount `json:"repeatCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var verr *scene.ValidationError
		if errors.As(err, &verr) {
			utils.RespondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repeat := scene.Indefinitely
	if payload.Repeat != nil {
		repeat = *payload.Repeat
	}

	animation, err := h.store.AddAnimation(r.Context(), sessionKey(r), elementID, payload.Attribute, payload.From, payload.To, payload.Duration, repeat)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, animation)
}

func (h *Handler) handleRemoveAnimation(w http.ResponseWriter, r *http.Request) {
	h.store.RemoveAnimation(r.Context(), sessionKey(r), chi.URLParam(r, "animationID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddPolygon(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CanvasID string           `json:"canvasId"`
		CX       float64          `json:"cx"`
		CY       float64          `json:"cy"`
		Radius   float64          `json:"radius"`
		Sides    int              `json:"sides"`
		Style    scene.Properties `json:"style"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	points, err := svg.PolygonPoints(payload.CX, payload.CY, payload.Radius, payload.Sides)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.addPathElement(w, r, payload.CanvasID, points, payload.Style)
}

func (h *Handler) handleAddStar(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CanvasID    string           `json:"canvasId"`
		CX          float64          `json:"cx"`
		CY          float64          `json:"cy"`
		OuterRadius float64          `json:"outerRadius"`
		InnerRadius float64          `json:"innerRadius"`
		Points      int              `json:"points"`
		Style       scene.Properties `json:"style"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	points, err := svg.StarPoints(payload.CX, payload.CY, payload.OuterRadius, payload.InnerRadius, payload.Points)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.addPathElement(w, r, payload.CanvasID, points, payload.Style)
}

func (h *Handler) addPathElement(w http.ResponseWriter, r *http.Request, canvasID string, points []svg.Point, style scene.Properties) {
	props := scene.Properties{"d": svg.PathData(points) + " Z"}
	for key, value := range style {
		if key == "d" {
			continue
		}
		props[key] = value
	}

	element, err := h.store.AddElement(r.Context(), sessionKey(r), canvasID, "path", props)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, element)
}

// handleRecordPrompt appends the prompt to the session history. When
// the suggestion service is present it plans scene changes in the
// background; those arrive as ordinary change events.
func (h *Handler) handleRecordPrompt(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := sessionKey(r)
	entry, err := h.store.RecordPrompt(r.Context(), key, payload.Text)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if h.suggestSvc != nil {
		go h.runSuggestion(key, entry.Text)
	}

	utils.RespondJSON(w, http.StatusAccepted, entry)
}

func (h *Handler) runSuggestion(key, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := h.suggestSvc.Apply(ctx, key, text)
	if err != nil {
		log.Printf("[scene] suggestion failed session=%s: %v", key, err)
		return
	}
	log.Printf("[scene] suggestion applied session=%s element=%s", key, id)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := h.store.Snapshot(r.Context(), sessionKey(r))
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

// handleExport renders the session as a standalone SVG document.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	snapshot := h.store.Snapshot(r.Context(), sessionKey(r))
	document := snapshot.SVG()

	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(document)); err != nil {
		log.Printf("[scene] export write failed: %v", err)
	}
}
