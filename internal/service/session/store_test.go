package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/svgstudio/server/internal/model/scene"
	"github.com/svgstudio/server/internal/service/broadcast"
	"github.com/svgstudio/server/internal/service/mirror"
	"github.com/svgstudio/server/internal/service/session"
)

func newStore() *session.Store {
	return session.NewStore(session.Config{}, broadcast.NewHub())
}

func TestDefaultSessionHasCanvas(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	canvas := store.ActiveCanvas(ctx, "")
	if canvas == nil {
		t.Fatal("fresh session must carry a default canvas")
	}
	if canvas.Width != 800 || canvas.Height != 600 {
		t.Fatalf("unexpected default canvas: %+v", canvas)
	}
}

func TestResetCanvasDimensionHandling(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	// Zero means omitted and takes the configured defaults.
	canvas, err := store.ResetCanvas(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("ResetCanvas err: %v", err)
	}
	if canvas.Width != 800 || canvas.Height != 600 {
		t.Fatalf("unexpected defaulted canvas: %+v", canvas)
	}

	// Explicit negative dimensions are the caller's mistake, not a
	// request for defaults.
	_, err = store.ResetCanvas(ctx, "", -5, 600)
	var verr *scene.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for negative width, got %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	canvasA := store.ActiveCanvas(ctx, "a")
	if _, err := store.AddElement(ctx, "a", canvasA.ID, "circle", scene.Properties{
		"cx": 10.0, "cy": 10.0, "r": 5.0,
	}); err != nil {
		t.Fatalf("AddElement err: %v", err)
	}

	if snap := store.Snapshot(ctx, "b"); len(snap.Elements) != 0 {
		t.Fatalf("session b must start empty, got %d elements", len(snap.Elements))
	}
	if snap := store.Snapshot(ctx, "a"); len(snap.Elements) != 1 {
		t.Fatalf("session a must keep its element, got %d", len(snap.Elements))
	}
}

func TestMutationsBroadcastInOrder(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	snap, sub := store.Attach(ctx, "")
	defer store.Detach(sub)
	if snap.Canvas == nil {
		t.Fatal("attach snapshot must include the canvas")
	}

	canvasID := snap.Canvas.ID
	element, err := store.AddElement(ctx, "", canvasID, "circle", scene.Properties{
		"cx": 200.0, "cy": 200.0, "r": 50.0, "fill": "#e74c3c",
	})
	if err != nil {
		t.Fatalf("AddElement err: %v", err)
	}
	if _, err := store.UpdateElement(ctx, "", element.ID, scene.Properties{"fill": "#00ff00"}); err != nil {
		t.Fatalf("UpdateElement err: %v", err)
	}
	store.RemoveElement(ctx, "", element.ID)

	wantKinds := []scene.EventKind{scene.ElementCreated, scene.ElementUpdated, scene.ElementRemoved}
	var lastSeq uint64
	for _, want := range wantKinds {
		msg := <-sub.Messages()
		if scene.EventKind(msg.Type) != want {
			t.Fatalf("expected %s, got %s", want, msg.Type)
		}
		if msg.Seq <= lastSeq {
			t.Fatalf("sequence must increase: %d after %d", msg.Seq, lastSeq)
		}
		lastSeq = msg.Seq
	}
}

func TestRemoveIsSilentWhenAbsent(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	_, sub := store.Attach(ctx, "")
	defer store.Detach(sub)

	store.RemoveElement(ctx, "", "circle_99")
	store.RemoveAnimation(ctx, "", "anim_99")

	select {
	case msg := <-sub.Messages():
		t.Fatalf("idempotent no-op must not broadcast: %+v", msg)
	default:
	}
}

func TestFailedMutationEmitsNothing(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	snap, sub := store.Attach(ctx, "")
	defer store.Detach(sub)

	_, err := store.AddElement(ctx, "", snap.Canvas.ID, "rectangle", scene.Properties{"x": 1.0, "y": 1.0})
	var verr *scene.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	select {
	case msg := <-sub.Messages():
		t.Fatalf("failed mutation must not broadcast: %+v", msg)
	default:
	}
}

func TestRecordPromptBroadcasts(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	_, sub := store.Attach(ctx, "")
	defer store.Detach(sub)

	if _, err := store.RecordPrompt(ctx, "", "draw a red circle"); err != nil {
		t.Fatalf("RecordPrompt err: %v", err)
	}
	if _, err := store.RecordPrompt(ctx, "", ""); err == nil {
		t.Fatal("empty prompt must be rejected")
	}

	msg := <-sub.Messages()
	if scene.EventKind(msg.Type) != scene.PromptRecorded {
		t.Fatalf("expected prompt_recorded, got %s", msg.Type)
	}
	entry, ok := msg.Data.(scene.PromptEntry)
	if !ok || entry.Text != "draw a red circle" {
		t.Fatalf("unexpected payload: %+v", msg.Data)
	}
}

// TestReplayEquivalence exercises the snapshot-completeness property: a
// mirror built from the attach snapshot plus every subsequent delta must
// equal a snapshot taken at the end.
func TestReplayEquivalence(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	snap, sub := store.Attach(ctx, "")
	defer store.Detach(sub)

	viewer := mirror.New()
	viewer.Apply(broadcast.Message{Type: broadcast.SnapshotType, Data: snap})

	canvasID := snap.Canvas.ID
	circle, err := store.AddElement(ctx, "", canvasID, "circle", scene.Properties{
		"cx": 200.0, "cy": 200.0, "r": 50.0, "fill": "#e74c3c",
	})
	if err != nil {
		t.Fatalf("AddElement err: %v", err)
	}
	rect, err := store.AddElement(ctx, "", canvasID, "rect", scene.Properties{
		"x": 10.0, "y": 10.0, "width": 50.0, "height": 30.0,
	})
	if err != nil {
		t.Fatalf("AddElement err: %v", err)
	}
	if _, err := store.AddAnimation(ctx, "", circle.ID, "r", 50.0, 70.0, 2.0, scene.Indefinitely); err != nil {
		t.Fatalf("AddAnimation err: %v", err)
	}
	// Replace the animation on the same pair; the mirror must converge
	// on a single animation.
	if _, err := store.AddAnimation(ctx, "", circle.ID, "r", 40.0, 80.0, 1.0, scene.Times(2)); err != nil {
		t.Fatalf("AddAnimation err: %v", err)
	}
	if _, err := store.UpdateElement(ctx, "", circle.ID, scene.Properties{"fill": "#00ff00"}); err != nil {
		t.Fatalf("UpdateElement err: %v", err)
	}
	store.RemoveElement(ctx, "", rect.ID)
	if _, err := store.RecordPrompt(ctx, "", "make it pulse"); err != nil {
		t.Fatalf("RecordPrompt err: %v", err)
	}

	// Seven mutations committed, one delta each.
	for i := 0; i < 7; i++ {
		viewer.Apply(<-sub.Messages())
	}

	assertSnapshotsEqual(t, store.Snapshot(ctx, ""), viewer.Snapshot())
}

func assertSnapshotsEqual(t *testing.T, want, got scene.Snapshot) {
	t.Helper()

	if (want.Canvas == nil) != (got.Canvas == nil) {
		t.Fatalf("canvas presence mismatch: %+v vs %+v", want.Canvas, got.Canvas)
	}
	if want.Canvas != nil && *want.Canvas != *got.Canvas {
		t.Fatalf("canvas mismatch: %+v vs %+v", want.Canvas, got.Canvas)
	}

	if len(want.Order) != len(got.Order) {
		t.Fatalf("order length mismatch: %v vs %v", want.Order, got.Order)
	}
	for i := range want.Order {
		if want.Order[i] != got.Order[i] {
			t.Fatalf("order mismatch at %d: %v vs %v", i, want.Order, got.Order)
		}
	}

	if len(want.Elements) != len(got.Elements) {
		t.Fatalf("element count mismatch: %d vs %d", len(want.Elements), len(got.Elements))
	}
	for id, wantElement := range want.Elements {
		gotElement, ok := got.Elements[id]
		if !ok {
			t.Fatalf("mirror missing element %s", id)
		}
		if len(wantElement.Properties) != len(gotElement.Properties) {
			t.Fatalf("element %s property count mismatch", id)
		}
		for key, value := range wantElement.Properties {
			if gotElement.Properties[key] != value {
				t.Fatalf("element %s property %s: %v vs %v", id, key, value, gotElement.Properties[key])
			}
		}
	}

	if len(want.Animations) != len(got.Animations) {
		t.Fatalf("animation count mismatch: %d vs %d", len(want.Animations), len(got.Animations))
	}
	for id, wantAnim := range want.Animations {
		if got.Animations[id] != wantAnim {
			t.Fatalf("animation %s mismatch: %+v vs %+v", id, wantAnim, got.Animations[id])
		}
	}

	if len(want.PromptHistory) != len(got.PromptHistory) {
		t.Fatalf("prompt history mismatch: %d vs %d", len(want.PromptHistory), len(got.PromptHistory))
	}
	for i := range want.PromptHistory {
		if want.PromptHistory[i] != got.PromptHistory[i] {
			t.Fatalf("prompt %d mismatch", i)
		}
	}
}
