package svg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a 2D coordinate used by the path generators.
type Point struct {
	X float64
	Y float64
}

// PathData renders a point list as SVG path data: a moveto for the first
// point followed by linetos.
func PathData(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s", formatNumber(points[0].X), formatNumber(points[0].Y))
	for _, p := range points[1:] {
		fmt.Fprintf(&b, " L %s %s", formatNumber(p.X), formatNumber(p.Y))
	}
	return b.String()
}

// PolygonPoints computes the vertices of a regular polygon centered on
// (cx, cy), first vertex at the top.
func PolygonPoints(cx, cy, radius float64, sides int) ([]Point, error) {
	if sides < 3 {
		return nil, fmt.Errorf("polygon must have at least 3 sides, got %d", sides)
	}

	points := make([]Point, 0, sides)
	for i := 0; i < sides; i++ {
		angle := 2*math.Pi*float64(i)/float64(sides) - math.Pi/2
		points = append(points, Point{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		})
	}
	return points, nil
}

// StarPoints computes the vertices of a star, alternating between the
// outer and inner radius.
func StarPoints(cx, cy, outerRadius, innerRadius float64, points int) ([]Point, error) {
	if points < 2 {
		return nil, fmt.Errorf("star must have at least 2 points, got %d", points)
	}

	result := make([]Point, 0, points*2)
	for i := 0; i < points*2; i++ {
		radius := outerRadius
		if i%2 == 1 {
			radius = innerRadius
		}
		angle := math.Pi*float64(i)/float64(points) - math.Pi/2
		result = append(result, Point{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		})
	}
	return result, nil
}

// BezierPoints samples a cubic Bezier curve at numPoints+1 evenly spaced
// parameter values, endpoints included.
func BezierPoints(p0, p1, p2, p3 Point, numPoints int) []Point {
	if numPoints < 1 {
		numPoints = 1
	}

	points := make([]Point, 0, numPoints+1)
	for i := 0; i <= numPoints; i++ {
		t := float64(i) / float64(numPoints)
		u := 1 - t
		points = append(points, Point{
			X: u*u*u*p0.X + 3*u*u*t*p1.X + 3*u*t*t*p2.X + t*t*t*p3.X,
			Y: u*u*u*p0.Y + 3*u*u*t*p1.Y + 3*u*t*t*p2.Y + t*t*t*p3.Y,
		})
	}
	return points
}

// formatNumber renders a float without a trailing ".0" so generated path
// data and exported attributes stay stable.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
