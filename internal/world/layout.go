package world

import (
	"errors"
	"fmt"
	"math"
)

// DefaultCellSize is the edge length of one grid cell in world units.
const DefaultCellSize = 1.0

var (
	// ErrEmptyLayout is returned when a layout has no cells.
	ErrEmptyLayout = errors.New("layout has no cells")
	// ErrRaggedLayout is returned when layout rows differ in width.
	ErrRaggedLayout = errors.New("layout rows differ in width")
)

// Cell addresses one grid cell.
type Cell struct {
	Col int `json:"col" yaml:"col"`
	Row int `json:"row" yaml:"row"`
}

// RoomLayout answers static walkability and visibility queries over a
// bounded grid. It is immutable after construction and safe to share.
type RoomLayout struct {
	cols, rows int
	cellSize   float64
	walkable   []bool
}

// NewRoomLayout builds a fully walkable grid with the given cells blocked.
func NewRoomLayout(cols, rows int, cellSize float64, blocked []Cell) (*RoomLayout, error) {
	if cols <= 0 || rows <= 0 {
		return nil, ErrEmptyLayout
	}
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	layout := &RoomLayout{
		cols:     cols,
		rows:     rows,
		cellSize: cellSize,
		walkable: make([]bool, cols*rows),
	}
	for i := range layout.walkable {
		layout.walkable[i] = true
	}
	for _, cell := range blocked {
		if !layout.inBounds(cell.Col, cell.Row) {
			return nil, fmt.Errorf("blocked cell %d,%d outside %dx%d grid", cell.Col, cell.Row, cols, rows)
		}
		layout.walkable[layout.index(cell.Col, cell.Row)] = false
	}
	return layout, nil
}

// ParseRows builds a layout from text rows where '#' marks a blocked cell and
// any other rune is walkable.
func ParseRows(rows []string, cellSize float64) (*RoomLayout, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyLayout
	}
	cols := len(rows[0])
	var blocked []Cell
	for r, line := range rows {
		if len(line) != cols {
			return nil, fmt.Errorf("row %d: %w", r, ErrRaggedLayout)
		}
		for c := 0; c < cols; c++ {
			if line[c] == '#' {
				blocked = append(blocked, Cell{Col: c, Row: r})
			}
		}
	}
	return NewRoomLayout(cols, len(rows), cellSize, blocked)
}

// Cols returns the grid width in cells.
func (l *RoomLayout) Cols() int { return l.cols }

// Rows returns the grid height in cells.
func (l *RoomLayout) Rows() int { return l.rows }

// CellSize returns the cell edge length.
func (l *RoomLayout) CellSize() float64 { return l.cellSize }

// Width returns the layout width in world units.
func (l *RoomLayout) Width() float64 { return float64(l.cols) * l.cellSize }

// Height returns the layout height in world units.
func (l *RoomLayout) Height() float64 { return float64(l.rows) * l.cellSize }

// InBounds reports whether pos lies inside the grid.
func (l *RoomLayout) InBounds(pos Vec2) bool {
	if l == nil {
		return false
	}
	return pos.X >= 0 && pos.Y >= 0 && pos.X < l.Width() && pos.Y < l.Height()
}

// CellAt returns the cell containing pos.
func (l *RoomLayout) CellAt(pos Vec2) (Cell, bool) {
	if !l.InBounds(pos) {
		return Cell{}, false
	}
	return Cell{
		Col: int(math.Floor(pos.X / l.cellSize)),
		Row: int(math.Floor(pos.Y / l.cellSize)),
	}, true
}

// CellCenter returns the world position at the middle of cell.
func (l *RoomLayout) CellCenter(cell Cell) Vec2 {
	return Vec2{
		X: (float64(cell.Col) + 0.5) * l.cellSize,
		Y: (float64(cell.Row) + 0.5) * l.cellSize,
	}
}

// IsWalkable reports whether pos is inside the grid on an open cell.
func (l *RoomLayout) IsWalkable(pos Vec2) bool {
	cell, ok := l.CellAt(pos)
	if !ok {
		return false
	}
	return l.walkable[l.index(cell.Col, cell.Row)]
}

// IsCellWalkable reports whether cell is inside the grid and open.
func (l *RoomLayout) IsCellWalkable(cell Cell) bool {
	if l == nil || !l.inBounds(cell.Col, cell.Row) {
		return false
	}
	return l.walkable[l.index(cell.Col, cell.Row)]
}

// TryResolveMovement moves from by displacement when every sampled point of
// the path is walkable. On failure the original position is returned.
func (l *RoomLayout) TryResolveMovement(from, displacement Vec2) (Vec2, bool) {
	if l == nil {
		return from, false
	}
	target := from.Add(displacement)
	if !l.IsWalkable(target) {
		return from, false
	}
	if !l.segmentClear(from, target) {
		return from, false
	}
	return target, true
}

// HasLineOfSight reports whether no blocked cell lies between from and to.
func (l *RoomLayout) HasLineOfSight(from, to Vec2) bool {
	if l == nil {
		return false
	}
	if !l.InBounds(from) || !l.InBounds(to) {
		return false
	}
	return l.segmentClear(from, to)
}

// WalkableCells lists every open cell in row-major order.
func (l *RoomLayout) WalkableCells() []Cell {
	cells := make([]Cell, 0, len(l.walkable))
	for row := 0; row < l.rows; row++ {
		for col := 0; col < l.cols; col++ {
			if l.walkable[l.index(col, row)] {
				cells = append(cells, Cell{Col: col, Row: row})
			}
		}
	}
	return cells
}

func (l *RoomLayout) segmentClear(from, to Vec2) bool {
	delta := to.Sub(from)
	distance := delta.Length()
	if distance == 0 {
		return l.IsWalkable(from)
	}
	step := l.cellSize / 4
	samples := int(math.Ceil(distance / step))
	for i := 1; i <= samples; i++ {
		t := float64(i) / float64(samples)
		if !l.IsWalkable(from.Add(delta.Scale(t))) {
			return false
		}
	}
	return true
}

func (l *RoomLayout) inBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < l.cols && row < l.rows
}

func (l *RoomLayout) index(col, row int) int {
	return row*l.cols + col
}
