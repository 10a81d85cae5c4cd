package spotlight

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/FocuswithJustin/wikiente/core/errors"
)

// Identity fields of a mention. All other fields are metrics.
const (
	FieldURI         = "URI"
	FieldOffset      = "offset"
	FieldSurfaceForm = "surfaceForm"
	FieldTypes       = "types"
)

// Field is a single key/value pair of a Spotlight resource.
type Field struct {
	Key   string
	Value string
}

// Mention is one resource the service found in the text.
type Mention struct {
	SurfaceForm string
	Offset      int // -1 when the service sent none
	URI         string
	Types       string // comma separated, e.g. "DBpedia:Person,Schema:Person"

	// Fields holds every field of the resource in response order, keys
	// without the "@" prefix and numbers in canonical form.
	Fields []Field
}

// Metrics returns the fields that are not part of the mention identity.
func (m Mention) Metrics() []Field {
	var metrics []Field
	for _, f := range m.Fields {
		switch f.Key {
		case FieldURI, FieldOffset, FieldSurfaceForm:
			continue
		}
		metrics = append(metrics, f)
	}
	return metrics
}

// End returns the offset just past the surface form, in characters.
func (m Mention) End() int {
	return m.Offset + len([]rune(m.SurfaceForm))
}

// parseResponse extracts mentions from a JSON annotate response, keeping
// the order of resources and of their fields.
func parseResponse(body []byte) ([]Mention, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.NewService("invalid JSON in response", nil)
	}
	resources := gjson.GetBytes(body, "Resources")
	if !resources.Exists() {
		return nil, errors.NewService("no Resources found in response", nil)
	}

	var mentions []Mention
	add := func(r gjson.Result) {
		if r.IsObject() {
			mentions = append(mentions, parseResource(r))
		}
	}
	if resources.IsArray() {
		resources.ForEach(func(_, r gjson.Result) bool {
			add(r)
			return true
		})
	} else {
		// single resources are sometimes sent as an object
		add(resources)
	}
	return mentions, nil
}

func parseResource(r gjson.Result) Mention {
	m := Mention{Offset: -1}
	r.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.Null {
			return true
		}
		key := strings.TrimPrefix(k.String(), "@")
		value := normalizeValue(v)
		m.Fields = append(m.Fields, Field{Key: key, Value: value})

		switch key {
		case FieldURI:
			m.URI = value
		case FieldSurfaceForm:
			m.SurfaceForm = v.String()
		case FieldTypes:
			m.Types = value
		case FieldOffset:
			if off, err := strconv.Atoi(value); err == nil {
				m.Offset = off
			}
		}
		return true
	})
	return m
}

// normalizeValue renders a field value the way the service means it:
// numeric strings become numbers, integers print without a fraction and
// floats always carry one.
func normalizeValue(v gjson.Result) string {
	var s string
	switch v.Type {
	case gjson.String:
		s = v.String()
	case gjson.Number:
		s = v.Raw
	case gjson.True:
		return "True"
	case gjson.False:
		return "False"
	default:
		return v.Raw
	}

	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return formatFloat(f)
	}
	return s
}

// formatFloat prints the shortest representation of f that reads back to
// the same value, in exponent form for very small and very large numbers.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
