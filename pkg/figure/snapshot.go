// Package figure models captured chart state and answers queries about it.
package figure

// Series kinds.
const (
	KindLine    = "line"
	KindScatter = "scatter"
	KindBar     = "bar"
)

// Series is one plotted data series.
type Series struct {
	Kind       string    `json:"kind"`
	X          []float64 `json:"x"`
	Y          []float64 `json:"y"`
	Color      string    `json:"color"`      // normalized #rrggbb
	ColorSpec  string    `json:"color_spec"` // as written by the program
	LineStyle  string    `json:"linestyle"`  // "-", "--", "-.", ":" or "None"
	LineWidth  float64   `json:"linewidth"`
	Marker     string    `json:"marker"` // "None" when absent
	MarkerSize float64   `json:"markersize"`
	Label      string    `json:"label"`
}

// Snapshot is the read-only state of one figure at capture time.
type Snapshot struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	XLabel string   `json:"xlabel"`
	YLabel string   `json:"ylabel"`
	Legend bool     `json:"legend"`
	Grid   bool     `json:"grid"`
	Series []Series `json:"series"`
}

// HasMarker reports whether the series draws markers.
func (s Series) HasMarker() bool {
	return s.Marker != "" && s.Marker != "None"
}
