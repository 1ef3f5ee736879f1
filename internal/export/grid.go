package export

import "math"

// GridSize is the layout of a grid composition.
type GridSize struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// GridFor returns the grid for n slides: cols = ceil(sqrt(n)) and
// rows = ceil(n / cols). Zero slides give an empty grid.
func GridFor(n int) GridSize {
	if n <= 0 {
		return GridSize{}
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	return GridSize{Cols: cols, Rows: rows}
}
