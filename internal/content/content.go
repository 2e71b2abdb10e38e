// Package content loads catalogs, parties and prebuilt dungeons from YAML.
package content

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/abilities"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/instance"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/status"
	"github.com/jackandcarter/Adventure-2.0-sub000/stats"
)

//go:embed default.yaml
var defaultContent []byte

// Bundle is one parsed content file.
type Bundle struct {
	Player        instance.PlayerTemplate     `yaml:"player"`
	StatBlocks    []stats.StatBlockDefinition `yaml:"statBlocks"`
	StatusEffects []status.Definition         `yaml:"statusEffects"`
	Abilities     []abilities.Definition      `yaml:"abilities"`
	Parties       []instance.Party            `yaml:"parties"`
	Dungeons      []dungeon.GeneratedDungeon  `yaml:"dungeons"`
	// CellSize is the world size of one grid cell; zero means 1.
	CellSize float64 `yaml:"cellSize"`
}

// Default returns the built-in content.
func Default() (*Bundle, error) {
	return Parse(defaultContent)
}

// Load reads a content file. An empty path loads the built-in content.
func Load(path string) (*Bundle, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	bundle, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", path, err)
	}
	return bundle, nil
}

// Parse decodes and checks a content document.
func Parse(data []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if len(b.Dungeons) == 0 {
		return nil, fmt.Errorf("content declares no dungeons")
	}
	if b.Player.StatBlock == "" {
		return nil, fmt.Errorf("content declares no player stat block")
	}
	for i := range b.Dungeons {
		if b.Dungeons[i].ID == "" {
			return nil, fmt.Errorf("dungeon %d missing id", i)
		}
		if len(b.Dungeons[i].Grid) == 0 {
			return nil, fmt.Errorf("dungeon %s has no grid", b.Dungeons[i].ID)
		}
	}
	return &b, nil
}

// Catalogs builds the runtime catalogs and checks that every stat block and
// ability the content references exists.
func (b *Bundle) Catalogs() (instance.Catalogs, error) {
	abilityCatalog, err := abilities.NewCatalog(b.Abilities)
	if err != nil {
		return instance.Catalogs{}, fmt.Errorf("abilities: %w", err)
	}
	effects, err := status.NewCatalog(b.StatusEffects)
	if err != nil {
		return instance.Catalogs{}, fmt.Errorf("status effects: %w", err)
	}
	for _, def := range b.Abilities {
		if def.AppliesStatusEffect == "" {
			continue
		}
		if _, ok := effects.Get(def.AppliesStatusEffect); !ok {
			return instance.Catalogs{}, fmt.Errorf("ability %s applies unknown status effect %s", def.ID, def.AppliesStatusEffect)
		}
	}
	resolver, err := stats.NewResolver(b.StatBlocks)
	if err != nil {
		return instance.Catalogs{}, fmt.Errorf("stat blocks: %w", err)
	}
	known := make(map[string]bool)
	for _, id := range resolver.Blocks() {
		known[id] = true
	}
	if !known[b.Player.StatBlock] {
		return instance.Catalogs{}, fmt.Errorf("player stat block %s is not defined", b.Player.StatBlock)
	}
	for _, d := range b.Dungeons {
		for _, room := range d.Rooms {
			for _, enemy := range room.Enemies {
				if !known[enemy.StatBlock] {
					return instance.Catalogs{}, fmt.Errorf("enemy %s uses unknown stat block %s", enemy.ID, enemy.StatBlock)
				}
				if enemy.AutoAbility != "" {
					if _, ok := abilityCatalog.Get(enemy.AutoAbility); !ok {
						return instance.Catalogs{}, fmt.Errorf("enemy %s uses unknown ability %s", enemy.ID, enemy.AutoAbility)
					}
				}
			}
		}
	}
	return instance.Catalogs{
		Abilities:  abilityCatalog,
		Effects:    effects,
		StatBlocks: resolver,
		Player:     b.Player,
	}, nil
}

// PartySaver persists parties.
type PartySaver interface {
	SaveParty(ctx context.Context, party instance.Party) error
}

// SeedParties saves every party the content declares.
func (b *Bundle) SeedParties(ctx context.Context, store PartySaver) error {
	for _, party := range b.Parties {
		if err := store.SaveParty(ctx, party); err != nil {
			return fmt.Errorf("seed party %s: %w", party.ID, err)
		}
	}
	return nil
}
