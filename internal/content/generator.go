package content

import (
	"context"
	"fmt"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/instance"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

// StaticGenerator serves prebuilt dungeons from a bundle. The seed picks
// which dungeon a run gets and is recorded on it.
type StaticGenerator struct {
	dungeons []dungeon.GeneratedDungeon
	layouts  []*world.RoomLayout
}

// NewStaticGenerator parses every dungeon grid in b up front.
func NewStaticGenerator(b *Bundle) (*StaticGenerator, error) {
	cellSize := b.CellSize
	if cellSize <= 0 {
		cellSize = 1
	}
	g := &StaticGenerator{}
	for _, d := range b.Dungeons {
		layout, err := world.ParseRows(d.Grid, cellSize)
		if err != nil {
			return nil, fmt.Errorf("dungeon %s grid: %w", d.ID, err)
		}
		for _, room := range d.Rooms {
			for _, enemy := range room.Enemies {
				if !layout.IsWalkable(enemy.Position) {
					return nil, fmt.Errorf("dungeon %s: enemy %s spawns on a blocked cell", d.ID, enemy.ID)
				}
			}
		}
		if !layout.IsWalkable(d.PlayerSpawn) {
			return nil, fmt.Errorf("dungeon %s: player spawn is blocked", d.ID)
		}
		g.dungeons = append(g.dungeons, d)
		g.layouts = append(g.layouts, layout)
	}
	if len(g.dungeons) == 0 {
		return nil, fmt.Errorf("no dungeons to serve")
	}
	return g, nil
}

// Generate implements instance.Generator.
func (g *StaticGenerator) Generate(ctx context.Context, req instance.GenerateRequest) (*dungeon.GeneratedDungeon, *world.RoomLayout, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	idx := int(req.Seed % int64(len(g.dungeons)))
	if idx < 0 {
		idx = -idx
	}
	d := g.dungeons[idx]
	if req.Seed != 0 {
		d.Seed = req.Seed
	}
	return &d, g.layouts[idx], nil
}

var _ instance.Generator = (*StaticGenerator)(nil)
