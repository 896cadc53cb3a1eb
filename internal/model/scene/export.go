package scene

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SVG serializes the snapshot as standard SVG markup. The output is
// deterministic: elements appear in creation order, geometry attributes
// in a fixed order followed by remaining attributes sorted by name, and
// animations nested inside their owning element sorted by id. The same
// snapshot always yields byte-identical output.
func (s Snapshot) SVG() string {
	if s.Canvas == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, s.Canvas.Width, s.Canvas.Height)
	b.WriteString("\n")

	animsByElement := s.animationsByElement()

	for _, id := range s.Order {
		element, ok := s.Elements[id]
		if !ok {
			continue
		}
		writeElement(&b, element, animsByElement[id])
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func (s Snapshot) animationsByElement() map[string][]Animation {
	grouped := make(map[string][]Animation)
	for _, anim := range s.Animations {
		grouped[anim.ElementID] = append(grouped[anim.ElementID], anim)
	}
	for _, anims := range grouped {
		sort.Slice(anims, func(i, j int) bool {
			// Ids share the "anim_" prefix, so length-then-lexicographic
			// ordering matches numeric creation order.
			if len(anims[i].ID) != len(anims[j].ID) {
				return len(anims[i].ID) < len(anims[j].ID)
			}
			return anims[i].ID < anims[j].ID
		})
	}
	return grouped
}

func writeElement(b *strings.Builder, element Element, anims []Animation) {
	tag := string(element.Type)

	b.WriteString("  <")
	b.WriteString(tag)
	fmt.Fprintf(b, ` id="%s"`, escapeAttr(element.ID))

	var content string
	for _, key := range orderedAttributeKeys(element) {
		value := element.Properties[key]
		if element.Type == Text && key == "text" {
			content, _ = value.(string)
			continue
		}
		fmt.Fprintf(b, ` %s="%s"`, key, escapeAttr(formatAttrValue(value)))
	}

	if len(anims) == 0 && element.Type != Text {
		b.WriteString("/>\n")
		return
	}

	b.WriteString(">")
	if element.Type == Text {
		b.WriteString(escapeText(content))
	}
	if len(anims) > 0 {
		b.WriteString("\n")
		for _, anim := range anims {
			writeAnimation(b, anim)
		}
		b.WriteString("  ")
	}
	fmt.Fprintf(b, "</%s>\n", tag)
}

func writeAnimation(b *strings.Builder, anim Animation) {
	fmt.Fprintf(b, `    <animate id="%s" attributeName="%s" from="%s" to="%s" dur="%ss" repeatCount="%s"/>`,
		escapeAttr(anim.ID),
		escapeAttr(anim.Attribute),
		escapeAttr(formatAttrValue(anim.From)),
		escapeAttr(formatAttrValue(anim.To)),
		formatAttrValue(anim.Duration),
		anim.Repeat.String(),
	)
	b.WriteString("\n")
}

// orderedAttributeKeys returns the element's property names with the
// type's geometry fields first, in their canonical order, and everything
// else sorted alphabetically.
func orderedAttributeKeys(element Element) []string {
	geometry := requiredGeometry[element.Type]
	seen := make(map[string]bool, len(geometry))

	keys := make([]string, 0, len(element.Properties))
	for _, field := range geometry {
		if _, ok := element.Properties[field]; ok {
			keys = append(keys, field)
			seen[field] = true
		}
	}

	rest := make([]string, 0, len(element.Properties))
	for key := range element.Properties {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func formatAttrValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func escapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func escapeText(s string) string {
	return escapeAttr(s)
}
