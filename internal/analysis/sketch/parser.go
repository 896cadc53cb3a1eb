// Package sketch extracts a drawing plan from a free-text prompt using
// keyword heuristics. It is the fallback behind the LLM-backed suggestion
// service and has no state of its own.
package sketch

import (
	"regexp"
	"strings"
)

// ShapeKind is the shape the prompt asks for.
type ShapeKind string

const (
	ShapeRect    ShapeKind = "rect"
	ShapeCircle  ShapeKind = "circle"
	ShapeText    ShapeKind = "text"
	ShapeStar    ShapeKind = "star"
	ShapePolygon ShapeKind = "polygon"
)

// Motion is the animation verb the prompt asks for.
type Motion string

const (
	MotionNone   Motion = ""
	MotionMove   Motion = "move"
	MotionSpin   Motion = "spin"
	MotionPulse  Motion = "pulse"
	MotionBounce Motion = "bounce"
	MotionFade   Motion = "fade"
	MotionColor  Motion = "color"
)

// Plan is the parsed intent of one prompt.
type Plan struct {
	Shape  ShapeKind
	Color  string
	Text   string
	Motion Motion
}

// shapeWords is checked in order; the first whole-word match wins.
var shapeWords = []struct {
	word string
	kind ShapeKind
}{
	{"circle", ShapeCircle},
	{"ball", ShapeCircle},
	{"dot", ShapeCircle},
	{"square", ShapeRect},
	{"rectangle", ShapeRect},
	{"rect", ShapeRect},
	{"box", ShapeRect},
	{"text", ShapeText},
	{"label", ShapeText},
	{"star", ShapeStar},
	{"polygon", ShapePolygon},
	{"triangle", ShapePolygon},
	{"hexagon", ShapePolygon},
}

var colorWords = []struct {
	word string
	hex  string
}{
	{"red", "#e74c3c"},
	{"blue", "#3498db"},
	{"green", "#2ecc71"},
	{"yellow", "#f1c40f"},
	{"orange", "#e67e22"},
	{"purple", "#9b59b6"},
	{"pink", "#fd79a8"},
	{"black", "#2c3e50"},
	{"white", "#ecf0f1"},
	{"gray", "#95a5a6"},
	{"grey", "#95a5a6"},
}

// DefaultColor is used when the prompt names no color.
const DefaultColor = "#3498db"

var motionPatterns = []struct {
	pattern *regexp.Regexp
	motion  Motion
}{
	{regexp.MustCompile(`(?i)spin(ning)?|rotat(e|ing)`), MotionSpin},
	{regexp.MustCompile(`(?i)puls(e|ing)|grow(ing)?|shrink(ing)?`), MotionPulse},
	{regexp.MustCompile(`(?i)bounc(e|ing)`), MotionBounce},
	{regexp.MustCompile(`(?i)fad(e|ing)`), MotionFade},
	{regexp.MustCompile(`(?i)colou?r\s+(chang|shift|cycl)`), MotionColor},
	{regexp.MustCompile(`(?i)mov(e|ing)|slid(e|ing)|drift(ing)?`), MotionMove},
}

var quotedText = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// Parse reads a prompt and extracts a drawing plan. The defaults mirror
// the suggestion behavior of the original editor: an unrecognized shape
// becomes a rectangle and an unnamed color becomes blue.
func Parse(prompt string) Plan {
	normalized := strings.ToLower(strings.TrimSpace(prompt))

	plan := Plan{Shape: ShapeRect, Color: DefaultColor}
	for _, entry := range shapeWords {
		if containsWord(normalized, entry.word) {
			plan.Shape = entry.kind
			break
		}
	}

	for _, entry := range colorWords {
		if containsWord(normalized, entry.word) {
			plan.Color = entry.hex
			break
		}
	}

	for _, entry := range motionPatterns {
		if entry.pattern.MatchString(prompt) {
			plan.Motion = entry.motion
			break
		}
	}

	if plan.Shape == ShapeText {
		if m := quotedText.FindStringSubmatch(prompt); m != nil {
			if m[1] != "" {
				plan.Text = m[1]
			} else {
				plan.Text = m[2]
			}
		} else {
			plan.Text = "Text"
		}
	}

	return plan
}

func containsWord(haystack, word string) bool {
	idx := strings.Index(haystack, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(haystack[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(haystack) || !isLetter(haystack[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(haystack[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
