package scene

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	sceneModel "github.com/svgstudio/server/internal/model/scene"
	"github.com/svgstudio/server/internal/service/broadcast"
	"github.com/svgstudio/server/internal/service/session"
)

func setupRouter() (*chi.Mux, *session.Store) {
	store := session.NewStore(session.Config{}, broadcast.NewHub())
	handler := New(store, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateCanvas(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodPost, "/canvas", map[string]any{"width": 400, "height": 300})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var canvas sceneModel.Canvas
	if err := json.Unmarshal(resp.Body.Bytes(), &canvas); err != nil {
		t.Fatalf("decode canvas: %v", err)
	}
	if canvas.Width != 400 || canvas.Height != 300 {
		t.Fatalf("canvas dimensions = %dx%d", canvas.Width, canvas.Height)
	}
}

func TestCreateCanvasRejectsBadDimensions(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodPost, "/canvas", map[string]any{"width": -5, "height": 300})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAddElement(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodPost, "/elements", map[string]any{
		"type":       "circle",
		"properties": map[string]any{"cx": 100, "cy": 100, "r": 40, "fill": "#FF0000"},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var element sceneModel.Element
	if err := json.Unmarshal(resp.Body.Bytes(), &element); err != nil {
		t.Fatalf("decode element: %v", err)
	}
	if element.ID != "circle_1" {
		t.Fatalf("id = %s, want circle_1", element.ID)
	}
	if element.Properties["fill"] != "#ff0000" {
		t.Fatalf("fill = %v, want normalized #ff0000", element.Properties["fill"])
	}
}

func TestAddElementMissingGeometry(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodPost, "/elements", map[string]any{
		"type":       "rect",
		"properties": map[string]any{"x": 0, "y": 0},
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUpdateUnknownElement(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodPatch, "/elements/circle_9", map[string]any{
		"properties": map[string]any{"fill": "#000000"},
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestRemoveElementIdempotent(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodDelete, "/elements/circle_9", nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAddAnimationDefaultsIndefinite(t *testing.T) {
	r, _ := setupRouter()

	created := doJSON(t, r, http.MethodPost, "/elements", map[string]any{
		"type":       "circle",
		"properties": map[string]any{"cx": 50, "cy": 50, "r": 20},
	})
	var element sceneModel.Element
	if err := json.Unmarshal(created.Body.Bytes(), &element); err != nil {
		t.Fatalf("decode element: %v", err)
	}

	resp := doJSON(t, r, http.MethodPost, "/elements/"+element.ID+"/animations", map[string]any{
		"attribute": "r",
		"from":      20,
		"to":        40,
		"duration":  2,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var animation sceneModel.Animation
	if err := json.Unmarshal(resp.Body.Bytes(), &animation); err != nil {
		t.Fatalf("decode animation: %v", err)
	}
	if !animation.Repeat.Indefinite {
		t.Fatalf("repeat should default to indefinite")
	}
}

func TestAddAnimationRejectsBadRepeat(t *testing.T) {
	r, _ := setupRouter()

	created := doJSON(t, r, http.MethodPost, "/elements", map[string]any{
		"type":       "circle",
		"properties": map[string]any{"cx": 50, "cy": 50, "r": 20},
	})
	var element sceneModel.Element
	json.Unmarshal(created.Body.Bytes(), &element)

	resp := doJSON(t, r, http.MethodPost, "/elements/"+element.ID+"/animations", map[string]any{
		"attribute":   "r",
		"from":        20,
		"to":          40,
		"duration":    2,
		"repeatCount": "forever",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAddStarShape(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodPost, "/shapes/star", map[string]any{
		"cx": 100, "cy": 100, "outerRadius": 50, "innerRadius": 20, "points": 5,
		"style": map[string]any{"fill": "#f1c40f"},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var element sceneModel.Element
	if err := json.Unmarshal(resp.Body.Bytes(), &element); err != nil {
		t.Fatalf("decode element: %v", err)
	}
	if element.Type != sceneModel.Path {
		t.Fatalf("type = %s, want path", element.Type)
	}
	d, _ := element.Properties["d"].(string)
	if !strings.HasSuffix(d, " Z") {
		t.Fatalf("path data %q not closed", d)
	}
}

func TestAddPolygonRejectsTooFewSides(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodPost, "/shapes/polygon", map[string]any{
		"cx": 100, "cy": 100, "radius": 50, "sides": 2,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestRecordPrompt(t *testing.T) {
	r, store := setupRouter()

	resp := doJSON(t, r, http.MethodPost, "/prompts", map[string]any{"text": "a red circle"})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}

	snapshot := store.Snapshot(context.Background(), session.DefaultKey)
	if len(snapshot.PromptHistory) != 1 || snapshot.PromptHistory[0].Text != "a red circle" {
		t.Fatalf("prompt history = %+v", snapshot.PromptHistory)
	}
}

func TestRecordPromptRejectsEmpty(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodPost, "/prompts", map[string]any{"text": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSnapshotAndExport(t *testing.T) {
	r, _ := setupRouter()

	doJSON(t, r, http.MethodPost, "/elements", map[string]any{
		"type":       "rect",
		"properties": map[string]any{"x": 10, "y": 10, "width": 30, "height": 20},
	})

	snap := doJSON(t, r, http.MethodGet, "/snapshot", nil)
	if snap.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", snap.Code)
	}
	var snapshot sceneModel.Snapshot
	if err := json.Unmarshal(snap.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Order) != 1 {
		t.Fatalf("order = %v", snapshot.Order)
	}

	export := doJSON(t, r, http.MethodGet, "/export", nil)
	if export.Code != http.StatusOK {
		t.Fatalf("export status = %d", export.Code)
	}
	if got := export.Header().Get("Content-Type"); !strings.HasPrefix(got, "image/svg+xml") {
		t.Fatalf("content type = %s", got)
	}
	if !strings.Contains(export.Body.String(), `<rect id="rect_1"`) {
		t.Fatalf("export missing rect element: %s", export.Body.String())
	}
}

func TestSessionsAreIsolatedByQueryParam(t *testing.T) {
	r, _ := setupRouter()

	doJSON(t, r, http.MethodPost, "/elements?session=alpha", map[string]any{
		"type":       "circle",
		"properties": map[string]any{"cx": 1, "cy": 1, "r": 1},
	})

	snap := doJSON(t, r, http.MethodGet, "/snapshot?session=beta", nil)
	var snapshot sceneModel.Snapshot
	if err := json.Unmarshal(snap.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Elements) != 0 {
		t.Fatalf("beta session should be empty, got %d elements", len(snapshot.Elements))
	}
}
