package mirror_test

import (
	"testing"

	"github.com/svgstudio/server/internal/model/scene"
	"github.com/svgstudio/server/internal/service/broadcast"
	"github.com/svgstudio/server/internal/service/mirror"
)

func TestUnknownIDsAreIgnored(t *testing.T) {
	m := mirror.New()

	m.Apply(broadcast.Message{
		Type: string(scene.ElementUpdated),
		Data: scene.Element{ID: "circle_1", Type: scene.Circle, Properties: scene.Properties{"r": 9.0}},
	})
	m.Apply(broadcast.Message{Type: string(scene.ElementRemoved), EntityID: "rect_7"})
	m.Apply(broadcast.Message{Type: string(scene.AnimationRemoved), EntityID: "anim_7"})

	snap := m.Snapshot()
	if len(snap.Elements) != 0 || len(snap.Animations) != 0 {
		t.Fatalf("deltas for unknown ids must be ignored: %+v", snap)
	}
}

func TestElementRemovalCascadesAnimations(t *testing.T) {
	m := mirror.New()
	m.Apply(broadcast.Message{
		Type: string(scene.ElementCreated),
		Data: scene.Element{ID: "circle_1", Type: scene.Circle, Properties: scene.Properties{"r": 5.0}},
	})
	m.Apply(broadcast.Message{
		Type: string(scene.AnimationCreated),
		Data: scene.Animation{ID: "anim_1", ElementID: "circle_1", Attribute: "r", Duration: 1},
	})

	m.Apply(broadcast.Message{Type: string(scene.ElementRemoved), EntityID: "circle_1"})

	snap := m.Snapshot()
	if len(snap.Elements) != 0 || len(snap.Animations) != 0 {
		t.Fatalf("removal must cascade: %+v", snap)
	}
}

func TestAnimationReplacedPerPair(t *testing.T) {
	m := mirror.New()
	m.Apply(broadcast.Message{
		Type: string(scene.ElementCreated),
		Data: scene.Element{ID: "circle_1", Type: scene.Circle, Properties: scene.Properties{"r": 5.0}},
	})
	m.Apply(broadcast.Message{
		Type: string(scene.AnimationCreated),
		Data: scene.Animation{ID: "anim_1", ElementID: "circle_1", Attribute: "r", Duration: 1},
	})
	m.Apply(broadcast.Message{
		Type: string(scene.AnimationCreated),
		Data: scene.Animation{ID: "anim_2", ElementID: "circle_1", Attribute: "r", Duration: 2},
	})

	snap := m.Snapshot()
	if len(snap.Animations) != 1 {
		t.Fatalf("expected single animation per pair, got %d", len(snap.Animations))
	}
	if _, ok := snap.Animations["anim_2"]; !ok {
		t.Fatal("latest animation must win")
	}
}

func TestSnapshotDiscardsLocalState(t *testing.T) {
	m := mirror.New()
	m.Apply(broadcast.Message{
		Type: string(scene.ElementCreated),
		Data: scene.Element{ID: "circle_1", Type: scene.Circle, Properties: scene.Properties{"r": 5.0}},
	})

	canvas := &scene.Canvas{ID: "svg_2", Width: 400, Height: 300}
	m.Apply(broadcast.Message{
		Type: broadcast.SnapshotType,
		Data: scene.Snapshot{
			Canvas:     canvas,
			Elements:   map[string]scene.Element{},
			Animations: map[string]scene.Animation{},
		},
	})

	snap := m.Snapshot()
	if len(snap.Elements) != 0 {
		t.Fatal("snapshot must replace local state wholesale")
	}
	if snap.Canvas == nil || snap.Canvas.ID != "svg_2" {
		t.Fatalf("unexpected canvas: %+v", snap.Canvas)
	}
}
