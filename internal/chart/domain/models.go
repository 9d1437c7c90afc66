package domain

import "time"

// BirthData is the input to natal chart calculation.
type BirthData struct {
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// PlanetPosition is one body's place in the chart.
type PlanetPosition struct {
	Body       string  `json:"body"`
	Sign       string  `json:"sign"`
	Degree     float64 `json:"degree"`
	House      int     `json:"house"`
	Retrograde bool    `json:"retrograde"`
}

// HouseCusp is one house boundary.
type HouseCusp struct {
	House  int     `json:"house"`
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
}

// Aspect is an angular relation between two bodies.
type Aspect struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Type string  `json:"type"`
	Orb  float64 `json:"orb"`
}

// Document is a computed natal chart.
type Document struct {
	Planets    []PlanetPosition `json:"planets"`
	Houses     []HouseCusp      `json:"houses"`
	Aspects    []Aspect         `json:"aspects"`
	ComputedAt time.Time        `json:"computed_at"`
}
