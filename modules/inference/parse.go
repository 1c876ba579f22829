package inference

import (
	"errors"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

var errNotArray = errors.New("response is not a json array")

// parseDetections reads the service response. Pixel boxes are normalized by
// the transmitted frame size. Malformed items are skipped one by one; only a
// body that is not a JSON array fails the whole response.
func parseDetections(body []byte, sentW, sentH int) ([]Detection, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, errors.New("response is not valid json")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, 0, errNotArray
	}

	var (
		dets    []Detection
		skipped int
	)
	root.ForEach(func(_, item gjson.Result) bool {
		d, ok := parseItem(item, float64(sentW), float64(sentH))
		if ok {
			dets = append(dets, d)
		} else {
			skipped++
		}
		return true
	})
	return dets, skipped, nil
}

func parseItem(item gjson.Result, sentW, sentH float64) (Detection, bool) {
	if !item.IsObject() || sentW <= 0 || sentH <= 0 {
		return Detection{}, false
	}

	var px [4]float64
	for i, key := range [...]string{"x", "y", "w", "h"} {
		v := item.Get(key)
		switch v.Type {
		case gjson.Null:
			px[i] = 0
		case gjson.Number:
			px[i] = v.Float()
		default:
			return Detection{}, false
		}
	}
	if px[2] <= 0 || px[3] <= 0 {
		return Detection{}, false
	}

	box, ok := ClampBox(Box{
		X: px[0] / sentW,
		Y: px[1] / sentH,
		W: px[2] / sentW,
		H: px[3] / sentH,
	})
	if !ok {
		return Detection{}, false
	}

	d := Detection{
		Box:        box,
		Label:      "person",
		ExternalID: parseTrackID(item.Get("track_id")),
	}
	if v := firstOf(item, "cls", "class"); v.Type == gjson.String {
		d.Label = v.String()
	}
	if v := firstOf(item, "score", "confidence"); v.Type == gjson.Number {
		d.Confidence = v.Float()
	}
	if v := item.Get("fall_detected"); v.IsBool() {
		d.Fall = v.Bool()
	}
	return d, true
}

func firstOf(item gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// parseTrackID accepts an integer, a float (rounded half away from zero) or
// a numeric string. Anything else means no external id.
func parseTrackID(v gjson.Result) *int64 {
	var id int64
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
			return nil
		}
		if f == math.Trunc(f) {
			id = v.Int()
		} else {
			id = int64(math.Round(f))
		}
	case gjson.String:
		s := v.String()
		if s == "" {
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		id = n
	default:
		return nil
	}
	return &id
}

// ClampBox clamps each coordinate to [0,1] and truncates the size so the box
// stays inside the unit square. ok is false when nothing is left.
func ClampBox(b Box) (Box, bool) {
	b.X, b.Y = clamp01(b.X), clamp01(b.Y)
	b.W, b.H = clamp01(b.W), clamp01(b.H)
	if b.X+b.W > 1 {
		b.W = math.Max(0, 1-b.X)
	}
	if b.Y+b.H > 1 {
		b.H = math.Max(0, 1-b.Y)
	}
	return b, b.W > 0 && b.H > 0
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
