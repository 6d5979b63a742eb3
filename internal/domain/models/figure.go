package models

import (
	"math"
	"strconv"
)

// Figure is a chart in the plotly.js figure format, so the page
// can hand it straight to Plotly.react.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type   string   `json:"type"`
	Name   string   `json:"name,omitempty"`
	Mode   string   `json:"mode,omitempty"`
	X      []string `json:"x"`
	Y      Series   `json:"y"`
	Fill   string   `json:"fill,omitempty"`
	Line   *Line    `json:"line,omitempty"`
	Marker *Marker  `json:"marker,omitempty"`
}

type Line struct {
	Color string   `json:"color,omitempty"`
	Width *float64 `json:"width,omitempty"`
}

// Marker.Color is either a single color string or one color per point.
type Marker struct {
	Color interface{} `json:"color,omitempty"`
}

type Layout struct {
	Title       *Text        `json:"title,omitempty"`
	XAxis       *Axis        `json:"xaxis,omitempty"`
	YAxis       *Axis        `json:"yaxis,omitempty"`
	BarMode     string       `json:"barmode,omitempty"`
	Shapes      []Shape      `json:"shapes,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

type Axis struct {
	Title *Text     `json:"title,omitempty"`
	Range []float64 `json:"range,omitempty"`
}

type Shape struct {
	Type      string      `json:"type"`
	XRef      string      `json:"xref,omitempty"`
	YRef      string      `json:"yref,omitempty"`
	X0        interface{} `json:"x0"`
	X1        interface{} `json:"x1"`
	Y0        float64     `json:"y0"`
	Y1        float64     `json:"y1"`
	FillColor string      `json:"fillcolor,omitempty"`
	Opacity   float64     `json:"opacity,omitempty"`
	Layer     string      `json:"layer,omitempty"`
	Line      *Line       `json:"line,omitempty"`
}

type Annotation struct {
	Text      string  `json:"text"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ShowArrow bool    `json:"showarrow"`
}

// Series is a list of numbers where NaN and ±Inf encode as JSON null, which
// plotly draws as a gap.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	buf := make([]byte, 0, 2+len(s)*8)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}
