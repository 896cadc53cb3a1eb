package svg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	hexPattern  = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbPattern  = regexp.MustCompile(`^rgb\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*\)$`)
	rgbaPattern = regexp.MustCompile(`^rgba\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*([0-9]*\.?[0-9]+)\s*\)$`)
)

// namedColors is the CSS named color set accepted as-is.
var namedColors = map[string]struct{}{}

func init() {
	names := []string{
		"aliceblue", "antiquewhite", "aqua", "aquamarine", "azure", "beige", "bisque", "black",
		"blanchedalmond", "blue", "blueviolet", "brown", "burlywood", "cadetblue", "chartreuse",
		"chocolate", "coral", "cornflowerblue", "cornsilk", "crimson", "cyan", "darkblue", "darkcyan",
		"darkgoldenrod", "darkgray", "darkgreen", "darkgrey", "darkkhaki", "darkmagenta", "darkolivegreen",
		"darkorange", "darkorchid", "darkred", "darksalmon", "darkseagreen", "darkslateblue", "darkslategray",
		"darkslategrey", "darkturquoise", "darkviolet", "deeppink", "deepskyblue", "dimgray", "dimgrey",
		"dodgerblue", "firebrick", "floralwhite", "forestgreen", "fuchsia", "gainsboro", "ghostwhite",
		"gold", "goldenrod", "gray", "green", "greenyellow", "grey", "honeydew", "hotpink", "indianred",
		"indigo", "ivory", "khaki", "lavender", "lavenderblush", "lawngreen", "lemonchiffon", "lightblue",
		"lightcoral", "lightcyan", "lightgoldenrodyellow", "lightgray", "lightgreen", "lightgrey", "lightpink",
		"lightsalmon", "lightseagreen", "lightskyblue", "lightslategray", "lightslategrey", "lightsteelblue",
		"lightyellow", "lime", "limegreen", "linen", "magenta", "maroon", "mediumaquamarine", "mediumblue",
		"mediumorchid", "mediumpurple", "mediumseagreen", "mediumslateblue", "mediumspringgreen",
		"mediumturquoise", "mediumvioletred", "midnightblue", "mintcream", "mistyrose", "moccasin",
		"navajowhite", "navy", "oldlace", "olive", "olivedrab", "orange", "orangered", "orchid",
		"palegoldenrod", "palegreen", "paleturquoise", "palevioletred", "papayawhip", "peachpuff",
		"peru", "pink", "plum", "powderblue", "purple", "rebeccapurple", "red", "rosybrown", "royalblue",
		"saddlebrown", "salmon", "sandybrown", "seagreen", "seashell", "sienna", "silver", "skyblue",
		"slateblue", "slategray", "slategrey", "snow", "springgreen", "steelblue", "tan", "teal",
		"thistle", "tomato", "turquoise", "violet", "wheat", "white", "whitesmoke", "yellow", "yellowgreen",
	}
	for _, name := range names {
		namedColors[name] = struct{}{}
	}
}

// ValidateColor normalizes a color value. Hex colors are lowercased,
// rgb/rgba components are range checked and reformatted, and named CSS
// colors pass through unchanged.
func ValidateColor(color string) (string, error) {
	if strings.HasPrefix(color, "#") {
		if hexPattern.MatchString(color) {
			return strings.ToLower(color), nil
		}
		return "", fmt.Errorf("invalid hex color format: %s", color)
	}

	if m := rgbPattern.FindStringSubmatch(color); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		if r > 255 || g > 255 || b > 255 {
			return "", fmt.Errorf("rgb values must be between 0 and 255: %s", color)
		}
		return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b), nil
	}

	if m := rgbaPattern.FindStringSubmatch(color); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		a, err := strconv.ParseFloat(m[4], 64)
		if err != nil || r > 255 || g > 255 || b > 255 || a < 0 || a > 1 {
			return "", fmt.Errorf("invalid rgba values: %s", color)
		}
		return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, formatNumber(a)), nil
	}

	if _, ok := namedColors[strings.ToLower(color)]; ok {
		return color, nil
	}

	return "", fmt.Errorf("invalid color name: %s", color)
}

// HexToRGB converts a hex color string to its components. The shorthand
// #RGB form is expanded before parsing.
func HexToRGB(hexColor string) (r, g, b int, err error) {
	trimmed := strings.TrimPrefix(hexColor, "#")
	if len(trimmed) == 3 {
		var expanded strings.Builder
		for _, c := range trimmed {
			expanded.WriteRune(c)
			expanded.WriteRune(c)
		}
		trimmed = expanded.String()
	}
	if len(trimmed) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color format: #%s", trimmed)
	}

	val, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color format: #%s", trimmed)
	}
	return int(val >> 16), int(val >> 8 & 0xff), int(val & 0xff), nil
}

// RGBToHex renders RGB components as a #rrggbb string. Components outside
// 0..255 are clamped.
func RGBToHex(r, g, b int) string {
	return fmt.Sprintf("#%02x%02x%02x", clampByte(r), clampByte(g), clampByte(b))
}

// InterpolateColor blends two hex colors at the given ratio. Non-hex
// inputs fall back to picking whichever endpoint the ratio is closer to.
func InterpolateColor(color1, color2 string, ratio float64) (string, error) {
	c1, err := ValidateColor(color1)
	if err != nil {
		return "", err
	}
	c2, err := ValidateColor(color2)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(c1, "#") && strings.HasPrefix(c2, "#") {
		r1, g1, b1, err := HexToRGB(c1)
		if err != nil {
			return "", err
		}
		r2, g2, b2, err := HexToRGB(c2)
		if err != nil {
			return "", err
		}
		r := r1 + int(float64(r2-r1)*ratio)
		g := g1 + int(float64(g2-g1)*ratio)
		b := b1 + int(float64(b2-b1)*ratio)
		return RGBToHex(r, g, b), nil
	}

	if ratio < 0.5 {
		return c1, nil
	}
	return c2, nil
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
