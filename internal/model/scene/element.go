package scene

import (
	"strings"

	"github.com/svgstudio/server/internal/svg"
)

// ElementType tags the closed set of supported shape kinds.
type ElementType string

const (
	Rect   ElementType = "rect"
	Circle ElementType = "circle"
	Text   ElementType = "text"
	Path   ElementType = "path"
)

// Properties maps attribute names to scalar values. Values are numbers
// (float64 after JSON decoding) or strings; anything else is rejected at
// the mutation boundary.
type Properties map[string]any

// Element is one visual node owned by a canvas.
type Element struct {
	ID         string      `json:"id"`
	Type       ElementType `json:"type"`
	Parent     string      `json:"parent"`
	Properties Properties  `json:"properties"`
}

// requiredGeometry lists the fields every element of a type must carry.
var requiredGeometry = map[ElementType][]string{
	Rect:   {"x", "y", "width", "height"},
	Circle: {"cx", "cy", "r"},
	Text:   {"x", "y", "text"},
	Path:   {"d"},
}

// animatableGeometry lists the type-specific attributes an animation may
// target, on top of the shared styling set.
var animatableGeometry = map[ElementType][]string{
	Rect:   {"x", "y", "width", "height", "rx", "ry"},
	Circle: {"cx", "cy", "r"},
	Text:   {"x", "y", "font-size"},
	Path:   {"d"},
}

var sharedAnimatable = []string{"fill", "stroke", "stroke-width", "opacity", "transform"}

// ParseElementType normalizes a caller-supplied type name. The long form
// "rectangle" is accepted as an alias for "rect".
func ParseElementType(raw string) (ElementType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "rect", "rectangle":
		return Rect, nil
	case "circle":
		return Circle, nil
	case "text":
		return Text, nil
	case "path":
		return Path, nil
	default:
		return "", validationf("unrecognized element type: %q", raw)
	}
}

// CanAnimate reports whether attribute is a legal animation target for
// elements of this type.
func (t ElementType) CanAnimate(attribute string) bool {
	for _, name := range sharedAnimatable {
		if name == attribute {
			return true
		}
	}
	for _, name := range animatableGeometry[t] {
		if name == attribute {
			return true
		}
	}
	return false
}

// validateProperties checks attribute names against XML name syntax,
// checks the value union, and normalizes color-valued styling attributes
// in place.
func validateProperties(props Properties) error {
	for key, value := range props {
		if !validAttributeName(key) {
			return validationf("invalid property name %q", key)
		}
		switch v := value.(type) {
		case float64, int, int64:
		case string:
			if key == "fill" || key == "stroke" {
				normalized, err := normalizeColorValue(v)
				if err != nil {
					return validationf("invalid %s value: %v", key, err)
				}
				props[key] = normalized
			}
		default:
			return validationf("unsupported value type for property %q", key)
		}
	}
	return nil
}

// validAttributeName reports whether key can appear verbatim as an SVG
// attribute name. Stored properties are serialized unescaped on export,
// so names outside XML name syntax are rejected at the mutation boundary.
func validAttributeName(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '.' || r == ':'):
		default:
			return false
		}
	}
	return true
}

// normalizeColorValue validates fill/stroke values. The SVG keywords
// "none", "transparent", and "currentColor" bypass color validation.
func normalizeColorValue(raw string) (string, error) {
	switch raw {
	case "none", "transparent", "currentColor":
		return raw, nil
	}
	return svg.ValidateColor(raw)
}

// validateGeometry asserts that every required field for the type is
// present with a value of the right kind.
func validateGeometry(typ ElementType, props Properties) error {
	for _, field := range requiredGeometry[typ] {
		value, ok := props[field]
		if !ok {
			return validationf("%s element requires property %q", typ, field)
		}
		switch field {
		case "text", "d":
			if _, ok := value.(string); !ok {
				return validationf("%s element property %q must be a string", typ, field)
			}
		default:
			if !isNumber(value) {
				return validationf("%s element property %q must be a number", typ, field)
			}
		}
	}
	return nil
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, int, int64:
		return true
	}
	return false
}

// clone returns a deep copy safe to hand to callers.
func (e *Element) clone() *Element {
	copied := *e
	copied.Properties = make(Properties, len(e.Properties))
	for k, v := range e.Properties {
		copied.Properties[k] = v
	}
	return &copied
}
