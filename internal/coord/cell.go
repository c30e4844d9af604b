package coord

import "fmt"

// Deep Desert grid extents: rows A-I, columns 1-9.
const (
	GridRows = 9
	GridCols = 9
)

// Cell designates one Deep Desert grid square, e.g. "B7".
type Cell struct {
	Row rune // 'A'..'I'
	Col int  // 1..9
}

// ParseCell parses a grid designator like "A1". It accepts only the
// canonical uppercase form.
func ParseCell(s string) (Cell, bool) {
	if len(s) != 2 {
		return Cell{}, false
	}
	row := rune(s[0])
	col := int(s[1] - '0')
	if row < 'A' || row > 'I' || col < 1 || col > 9 {
		return Cell{}, false
	}
	return Cell{Row: row, Col: col}, true
}

// String renders the canonical designator.
func (c Cell) String() string {
	return fmt.Sprintf("%c%d", c.Row, c.Col)
}

// Valid reports whether the cell lies on the 9x9 grid.
func (c Cell) Valid() bool {
	return c.Row >= 'A' && c.Row <= 'I' && c.Col >= 1 && c.Col <= 9
}
