package battle

import (
	"github.com/LeeIsaac1201/gaole/game/element"
)

// MaxMoves is the largest moveset a combatant can carry.
const MaxMoves = 4

// CombatantConfig describes a combatant at construction time.
type CombatantConfig struct {
	SpeciesID int
	Name      string
	Types     []element.Element // first entry is the primary type
	MaxHP     int
	HP        int // 0 = start at MaxHP
	Attack    int
	Defense   int
	Moves     []Move
}

// Combatant is a creature taking part in (or waiting for) a battle.
// Attack, defense, types and max HP are fixed after construction.
type Combatant struct {
	speciesID int
	name      string
	types     []element.Element
	hp, maxHP int
	attack    int
	defense   int
	moves     []Move
}

// NewCombatant builds a combatant. MaxHP is raised to 1 if needed and
// moves beyond MaxMoves are dropped.
func NewCombatant(cfg CombatantConfig) *Combatant {
	maxHP := cfg.MaxHP
	if maxHP < 1 {
		maxHP = 1
	}
	c := &Combatant{
		speciesID: cfg.SpeciesID,
		name:      cfg.Name,
		types:     append([]element.Element(nil), cfg.Types...),
		maxHP:     maxHP,
		hp:        maxHP,
		attack:    cfg.Attack,
		defense:   cfg.Defense,
	}
	if cfg.HP > 0 {
		c.SetHP(cfg.HP)
	}
	for _, m := range cfg.Moves {
		c.AddMove(m)
	}
	return c
}

func (c *Combatant) SpeciesID() int { return c.speciesID }
func (c *Combatant) Name() string   { return c.name }
func (c *Combatant) HP() int        { return c.hp }
func (c *Combatant) MaxHP() int     { return c.maxHP }
func (c *Combatant) Attack() int    { return c.attack }
func (c *Combatant) Defense() int   { return c.defense }

// Types returns a copy of the elemental types.
func (c *Combatant) Types() []element.Element {
	return append([]element.Element(nil), c.types...)
}

// PrimaryType is the first type, or Normal when the combatant has none.
func (c *Combatant) PrimaryType() element.Element {
	if len(c.types) == 0 {
		return element.Normal
	}
	return c.types[0]
}

// Moves returns a copy of the moveset.
func (c *Combatant) Moves() []Move {
	return append([]Move(nil), c.moves...)
}

// AddMove appends m if there is room. It reports whether m was added.
func (c *Combatant) AddMove(m Move) bool {
	if len(c.moves) >= MaxMoves {
		return false
	}
	c.moves = append(c.moves, m)
	return true
}

// SetHP sets current HP, clamped to [0, MaxHP].
func (c *Combatant) SetHP(v int) {
	if v > c.maxHP {
		v = c.maxHP
	}
	if v < 0 {
		v = 0
	}
	c.hp = v
}

// TakeDamage subtracts n (ignored when not positive) and returns the HP
// actually lost.
func (c *Combatant) TakeDamage(n int) int {
	if n <= 0 {
		return 0
	}
	before := c.hp
	c.SetHP(c.hp - n)
	return before - c.hp
}

// Heal restores HP to the maximum.
func (c *Combatant) Heal() { c.hp = c.maxHP }

func (c *Combatant) IsFainted() bool { return c.hp == 0 }

// Clone returns an independent copy at full HP.
func (c *Combatant) Clone() *Combatant {
	cp := *c
	cp.types = append([]element.Element(nil), c.types...)
	cp.moves = append([]Move(nil), c.moves...)
	cp.hp = cp.maxHP
	return &cp
}

// Scale returns a full-HP copy with max HP and attack multiplied by
// power and defense by guard. Results are truncated and kept at least 1.
func (c *Combatant) Scale(power, guard float64) *Combatant {
	cp := c.Clone()
	cp.maxHP = atLeastOne(int(float64(c.maxHP) * power))
	cp.hp = cp.maxHP
	cp.attack = atLeastOne(int(float64(c.attack) * power))
	cp.defense = atLeastOne(int(float64(c.defense) * guard))
	return cp
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// CombatantSnapshot is the serialisable view of a combatant.
type CombatantSnapshot struct {
	SpeciesID int      `json:"species_id"`
	Name      string   `json:"name"`
	Types     []string `json:"types"`
	HP        int      `json:"hp"`
	MaxHP     int      `json:"max_hp"`
	Attack    int      `json:"attack"`
	Defense   int      `json:"defense"`
	Moves     []string `json:"moves"`
}

// Snapshot captures the combatant's current state.
func (c *Combatant) Snapshot() CombatantSnapshot {
	s := CombatantSnapshot{
		SpeciesID: c.speciesID,
		Name:      c.name,
		Types:     make([]string, len(c.types)),
		HP:        c.hp,
		MaxHP:     c.maxHP,
		Attack:    c.attack,
		Defense:   c.defense,
		Moves:     make([]string, len(c.moves)),
	}
	for i, t := range c.types {
		s.Types[i] = t.String()
	}
	for i, m := range c.moves {
		s.Moves[i] = m.Name()
	}
	return s
}
