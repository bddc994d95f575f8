package stats

// Figure is a declarative chart description for the browser chart widget.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one chart series.
type Trace struct {
	Type      string    `json:"type"`
	Name      string    `json:"name,omitempty"`
	X         []string  `json:"x,omitempty"`
	Y         []float64 `json:"y,omitempty"`
	BoxPoints string    `json:"boxpoints,omitempty"`
	Marker    *Marker   `json:"marker,omitempty"`
}

// Marker colors a trace.
type Marker struct {
	Color []string `json:"color,omitempty"`
}

// Layout holds chart options.
type Layout struct {
	Title      string `json:"title,omitempty"`
	ShowLegend bool   `json:"showlegend"`
	Height     int    `json:"height,omitempty"`
}

const figureHeight = 280

func boxFigure(attr string, b BoxPlot) *Figure {
	return &Figure{
		Data: []Trace{{
			Type:      "box",
			Name:      attr,
			Y:         b.Values,
			BoxPoints: "outliers",
		}},
		Layout: Layout{Title: attr, Height: figureHeight},
	}
}

func barFigure(attr string, b BarChart) *Figure {
	y := make([]float64, len(b.Counts))
	for i, c := range b.Counts {
		y[i] = float64(c)
	}
	return &Figure{
		Data: []Trace{{
			Type:   "bar",
			Name:   attr,
			X:      b.Categories,
			Y:      y,
			Marker: &Marker{Color: b.Colors},
		}},
		Layout: Layout{Title: attr, Height: figureHeight},
	}
}
