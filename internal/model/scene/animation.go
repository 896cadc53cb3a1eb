package scene

import (
	"encoding/json"
	"strconv"
)

// RepeatIndefinite is the sentinel accepted in place of a repeat count.
const RepeatIndefinite = "indefinite"

// RepeatCount is either a positive iteration count or the indefinite
// sentinel. On the wire it is a JSON number or the string "indefinite".
type RepeatCount struct {
	Count      int
	Indefinite bool
}

// Indefinitely is the repeat value for animations that never stop.
var Indefinitely = RepeatCount{Indefinite: true}

// Times builds a finite repeat count.
func Times(n int) RepeatCount {
	return RepeatCount{Count: n}
}

func (r RepeatCount) valid() bool {
	return r.Indefinite || r.Count > 0
}

// String renders the value the way SVG repeatCount attributes expect.
func (r RepeatCount) String() string {
	if r.Indefinite {
		return RepeatIndefinite
	}
	return strconv.Itoa(r.Count)
}

func (r RepeatCount) MarshalJSON() ([]byte, error) {
	if r.Indefinite {
		return json.Marshal(RepeatIndefinite)
	}
	return json.Marshal(r.Count)
}

func (r *RepeatCount) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString != RepeatIndefinite {
			return validationf("repeat must be a positive integer or %q", RepeatIndefinite)
		}
		*r = Indefinitely
		return nil
	}

	var asNumber float64
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return validationf("repeat must be a positive integer or %q", RepeatIndefinite)
	}
	if asNumber != float64(int(asNumber)) {
		return validationf("repeat must be a whole number")
	}
	*r = RepeatCount{Count: int(asNumber)}
	return nil
}

// Animation binds one element attribute to an interpolation over time.
type Animation struct {
	ID        string      `json:"id"`
	ElementID string      `json:"element"`
	Attribute string      `json:"attribute"`
	From      any         `json:"from"`
	To        any         `json:"to"`
	Duration  float64     `json:"duration"`
	Repeat    RepeatCount `json:"repeat"`
}

func (a *Animation) clone() *Animation {
	copied := *a
	return &copied
}
