package scene

import (
	"fmt"
	"time"
)

// DefaultPromptHistoryLimit bounds the prompt history when no explicit
// limit is configured.
const DefaultPromptHistoryLimit = 50

// Document is the canonical scene graph for one session: one canvas, its
// elements in creation order, their animations, and the bounded prompt
// history. Document is not safe for concurrent use; the session store
// serializes access.
type Document struct {
	canvas      *Canvas
	elements    map[string]*Element
	order       []string
	animations  map[string]*Animation
	animByPair  map[string]string
	prompts     []PromptEntry
	promptLimit int

	canvasSeq  int
	elementSeq int
	animSeq    int
}

// Snapshot is a deep, self-contained copy of a document's state,
// sufficient to rebuild a viewer mirror from nothing.
type Snapshot struct {
	Canvas        *Canvas              `json:"canvas"`
	Elements      map[string]Element   `json:"elements"`
	Order         []string             `json:"order"`
	Animations    map[string]Animation `json:"animations"`
	PromptHistory []PromptEntry        `json:"promptHistory"`
}

// NewDocument creates an empty document. promptLimit <= 0 selects the
// default history bound.
func NewDocument(promptLimit int) *Document {
	if promptLimit <= 0 {
		promptLimit = DefaultPromptHistoryLimit
	}
	return &Document{
		elements:    make(map[string]*Element),
		animations:  make(map[string]*Animation),
		animByPair:  make(map[string]string),
		promptLimit: promptLimit,
	}
}

// CreateCanvas replaces any prior canvas and clears all elements and
// animations. Identifier counters are not reset, so ids stay unique for
// the lifetime of the session.
func (d *Document) CreateCanvas(width, height int, prompt string) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, validationf("canvas dimensions must be positive, got %dx%d", width, height)
	}

	d.canvasSeq++
	canvas := &Canvas{
		ID:     fmt.Sprintf("svg_%d", d.canvasSeq),
		Width:  width,
		Height: height,
		Prompt: prompt,
	}

	d.canvas = canvas
	d.elements = make(map[string]*Element)
	d.order = nil
	d.animations = make(map[string]*Animation)
	d.animByPair = make(map[string]string)

	copied := *canvas
	return &copied, nil
}

// Canvas returns a copy of the active canvas, or nil if none exists.
func (d *Document) Canvas() *Canvas {
	if d.canvas == nil {
		return nil
	}
	copied := *d.canvas
	return &copied
}

// AddElement validates and stores a new element under the given canvas.
func (d *Document) AddElement(canvasID string, typ ElementType, props Properties) (*Element, error) {
	if d.canvas == nil || d.canvas.ID != canvasID {
		return nil, notFound("canvas", canvasID)
	}
	if _, ok := requiredGeometry[typ]; !ok {
		return nil, validationf("unrecognized element type: %q", string(typ))
	}

	if props == nil {
		props = Properties{}
	}
	if err := validateProperties(props); err != nil {
		return nil, err
	}
	if err := validateGeometry(typ, props); err != nil {
		return nil, err
	}

	d.elementSeq++
	element := &Element{
		ID:         fmt.Sprintf("%s_%d", typ, d.elementSeq),
		Type:       typ,
		Parent:     canvasID,
		Properties: props,
	}
	d.elements[element.ID] = element
	d.order = append(d.order, element.ID)

	return element.clone(), nil
}

// UpdateElement merges the supplied keys into an element's properties.
// Omitted keys keep their previous value. The post-merge element is
// returned even when every supplied value was already current.
func (d *Document) UpdateElement(elementID string, props Properties) (*Element, error) {
	element, ok := d.elements[elementID]
	if !ok {
		return nil, notFound("element", elementID)
	}

	if err := validateProperties(props); err != nil {
		return nil, err
	}

	for key, value := range props {
		element.Properties[key] = value
	}
	return element.clone(), nil
}

// RemoveElement deletes an element and every animation targeting it.
// Removing an unknown id is a no-op; the second return reports whether
// anything was deleted.
func (d *Document) RemoveElement(elementID string) (removedAnimations []string, removed bool) {
	if _, ok := d.elements[elementID]; !ok {
		return nil, false
	}

	delete(d.elements, elementID)
	for i, id := range d.order {
		if id == elementID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}

	for id, anim := range d.animations {
		if anim.ElementID == elementID {
			delete(d.animations, id)
			delete(d.animByPair, pairKey(anim.ElementID, anim.Attribute))
			removedAnimations = append(removedAnimations, id)
		}
	}
	return removedAnimations, true
}

// Element returns a copy of the element, if present.
func (d *Document) Element(elementID string) (*Element, bool) {
	element, ok := d.elements[elementID]
	if !ok {
		return nil, false
	}
	return element.clone(), true
}

// AddAnimation binds an element attribute to an interpolation. An
// existing animation on the same (element, attribute) pair is replaced:
// its id is invalidated and a fresh one issued. The replaced id, if any,
// is returned alongside the new animation.
func (d *Document) AddAnimation(elementID, attribute string, from, to any, duration float64, repeat RepeatCount) (*Animation, string, error) {
	element, ok := d.elements[elementID]
	if !ok {
		return nil, "", notFound("element", elementID)
	}
	if duration <= 0 {
		return nil, "", validationf("animation duration must be positive, got %v", duration)
	}
	if !repeat.valid() {
		return nil, "", validationf("repeat must be a positive integer or %q", RepeatIndefinite)
	}
	if !element.Type.CanAnimate(attribute) {
		return nil, "", validationf("attribute %q cannot be animated on %s elements", attribute, element.Type)
	}

	key := pairKey(elementID, attribute)
	replaced := d.animByPair[key]
	if replaced != "" {
		delete(d.animations, replaced)
	}

	d.animSeq++
	animation := &Animation{
		ID:        fmt.Sprintf("anim_%d", d.animSeq),
		ElementID: elementID,
		Attribute: attribute,
		From:      from,
		To:        to,
		Duration:  duration,
		Repeat:    repeat,
	}
	d.animations[animation.ID] = animation
	d.animByPair[key] = animation.ID

	return animation.clone(), replaced, nil
}

// RemoveAnimation deletes an animation. Unknown ids are a no-op.
func (d *Document) RemoveAnimation(animationID string) bool {
	anim, ok := d.animations[animationID]
	if !ok {
		return false
	}
	delete(d.animations, animationID)
	delete(d.animByPair, pairKey(anim.ElementID, anim.Attribute))
	return true
}

// RecordPrompt appends to the bounded prompt history, evicting the oldest
// entry once the limit is reached.
func (d *Document) RecordPrompt(text string) PromptEntry {
	entry := PromptEntry{Text: text, Timestamp: time.Now().UTC()}
	d.prompts = append(d.prompts, entry)
	if len(d.prompts) > d.promptLimit {
		d.prompts = d.prompts[len(d.prompts)-d.promptLimit:]
	}
	return entry
}

// Snapshot deep-copies the full document state. The result shares no
// storage with the document.
func (d *Document) Snapshot() Snapshot {
	snap := Snapshot{
		Canvas:        d.Canvas(),
		Elements:      make(map[string]Element, len(d.elements)),
		Order:         append([]string(nil), d.order...),
		Animations:    make(map[string]Animation, len(d.animations)),
		PromptHistory: append([]PromptEntry(nil), d.prompts...),
	}
	for id, element := range d.elements {
		snap.Elements[id] = *element.clone()
	}
	for id, anim := range d.animations {
		snap.Animations[id] = *anim
	}
	return snap
}

func pairKey(elementID, attribute string) string {
	return elementID + "/" + attribute
}
