// Package resource loads the species catalog used for wild encounters,
// trainer opponents and starter creatures.
package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/LeeIsaac1201/gaole/game/battle"
	"github.com/LeeIsaac1201/gaole/game/element"
	"go.uber.org/zap"
)

// Species is one catalog entry.
type Species struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Types          []string `json:"types"`
	MaxHP          int      `json:"max_hp"`
	Attack         int      `json:"attack"`
	SpecialAttack  int      `json:"special_attack,omitempty"`
	Defense        int      `json:"defense"`
	SpecialDefense int      `json:"special_defense,omitempty"`
	Moves          []string `json:"moves,omitempty"`
	Grade          int      `json:"grade,omitempty"`
	Energy         int      `json:"energy,omitempty"`
	Speed          int      `json:"speed,omitempty"`
}

// Combatant builds a full-HP combatant. A zero attack or defense falls
// back to the special stat.
func (s Species) Combatant() *battle.Combatant {
	atk := s.Attack
	if atk == 0 {
		atk = s.SpecialAttack
	}
	def := s.Defense
	if def == 0 {
		def = s.SpecialDefense
	}
	return battle.NewCombatant(battle.CombatantConfig{
		SpeciesID: s.ID,
		Name:      s.Name,
		Types:     element.ParseAll(s.Types),
		MaxHP:     s.MaxHP,
		Attack:    atk,
		Defense:   def,
		Moves:     battle.MovesByName(s.Moves),
	})
}

// Intner picks a random index. *rand.Rand satisfies it.
type Intner interface {
	Intn(n int) int
}

// Catalog is an immutable list of species.
type Catalog struct {
	species  []Species
	fallback bool
}

// NewCatalog wraps species. An empty list is replaced by the built-in table.
func NewCatalog(species []Species, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(species) == 0 {
		logger.Info("species catalog empty, using built-in table",
			zap.Int("species", len(builtin)))
		return &Catalog{species: append([]Species(nil), builtin...), fallback: true}
	}
	return &Catalog{species: append([]Species(nil), species...)}
}

// LoadCatalog reads a catalog file. A missing, unreadable or malformed
// file is not fatal: the built-in table is used and the reason logged.
func LoadCatalog(path string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return NewCatalog(nil, logger)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("no species catalog file", zap.String("path", path))
		return NewCatalog(nil, logger)
	}
	if err != nil {
		logger.Warn("read species catalog", zap.String("path", path), zap.Error(err))
		return NewCatalog(nil, logger)
	}
	species, err := ParseCatalog(data)
	if err != nil {
		logger.Warn("parse species catalog", zap.String("path", path), zap.Error(err))
		return NewCatalog(nil, logger)
	}
	logger.Info("species catalog loaded", zap.String("path", path), zap.Int("species", len(species)))
	return NewCatalog(species, logger)
}

// Len returns the number of species.
func (c *Catalog) Len() int { return len(c.species) }

// Fallback reports whether the built-in table is in use.
func (c *Catalog) Fallback() bool { return c.fallback }

// All returns a copy of every species.
func (c *Catalog) All() []Species { return append([]Species(nil), c.species...) }

// ByID finds a species by id.
func (c *Catalog) ByID(id int) (Species, bool) {
	for _, s := range c.species {
		if s.ID == id {
			return s, true
		}
	}
	return Species{}, false
}

// Random picks a species uniformly.
func (c *Catalog) Random(rng Intner) Species {
	return c.species[rng.Intn(len(c.species))]
}

// ---- Catalog file format ----

// speciesJSON mirrors the canonical catalog keys. Every field tolerates
// strings, numbers or a missing value.
type speciesJSON struct {
	DiskNumber     json.RawMessage `json:"disk_number"`
	Name           looseString     `json:"name"`
	Types          looseStrings    `json:"types"`
	HealthPoints   looseInt        `json:"health_points"`
	Attack         looseInt        `json:"attack"`
	SpecialAttack  looseInt        `json:"special_attack"`
	Defense        looseInt        `json:"defense"`
	SpecialDefense looseInt        `json:"special_defense"`
	Move           looseStrings    `json:"move"`
	Grade          looseInt        `json:"grade"`
	Energy         looseInt        `json:"energy"`
	Speed          looseInt        `json:"speed"`
}

// ParseCatalog decodes a JSON array of species, or an object holding one.
// Entries without a disk_number are skipped; ids that contain no digits
// are assigned sequentially.
func ParseCatalog(data []byte) ([]Species, error) {
	raw, err := catalogArray(data)
	if err != nil {
		return nil, err
	}
	out := make([]Species, 0, len(raw))
	autoID := 1
	for _, item := range raw {
		var e speciesJSON
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		if len(e.DiskNumber) == 0 {
			continue
		}
		id, ok := digitsOf(e.DiskNumber)
		if !ok {
			id = autoID
			autoID++
		}
		out = append(out, Species{
			ID:             id,
			Name:           string(e.Name),
			Types:          []string(e.Types),
			MaxHP:          int(e.HealthPoints),
			Attack:         int(e.Attack),
			SpecialAttack:  int(e.SpecialAttack),
			Defense:        int(e.Defense),
			SpecialDefense: int(e.SpecialDefense),
			Moves:          []string(e.Move),
			Grade:          int(e.Grade),
			Energy:         int(e.Energy),
			Speed:          int(e.Speed),
		})
	}
	return out, nil
}

func catalogArray(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var arr []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, fmt.Errorf("resource: parse catalog: %w", err)
		}
		return arr, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("resource: parse catalog: %w", err)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := json.Unmarshal(obj[k], &arr); err == nil && len(arr) > 0 {
			return arr, nil
		}
	}
	return nil, nil
}

func digitsOf(raw json.RawMessage) (int, bool) {
	var b strings.Builder
	for _, r := range string(raw) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

type looseInt int

func (v *looseInt) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*v = looseInt(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		kept := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '-' {
				return r
			}
			return -1
		}, s)
		n, _ := strconv.Atoi(kept)
		*v = looseInt(n)
		return nil
	}
	*v = 0
	return nil
}

type looseString string

func (v *looseString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = looseString(s)
		return nil
	}
	*v = looseString(strings.Trim(string(b), `"`))
	if *v == "null" {
		*v = ""
	}
	return nil
}

type looseStrings []string

func (v *looseStrings) UnmarshalJSON(b []byte) error {
	var arr []looseString
	if err := json.Unmarshal(b, &arr); err == nil {
		out := make([]string, 0, len(arr))
		for _, s := range arr {
			if t := strings.TrimSpace(string(s)); t != "" {
				out = append(out, t)
			}
		}
		*v = out
		return nil
	}
	var one looseString
	_ = json.Unmarshal(b, &one)
	if t := strings.TrimSpace(string(one)); t != "" {
		*v = []string{t}
	} else {
		*v = nil
	}
	return nil
}
