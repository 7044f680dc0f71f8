package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/LeeIsaac1201/gaole/game/battle"
)

var (
	ErrInsufficientFunds = errors.New("player: insufficient funds")
	ErrInvalidAmount     = errors.New("player: amount must be positive")
	ErrNoCreature        = errors.New("player: no such creature")
)

// Trainer is a player profile: balance, battle record and the owned
// roster. Index 0 of the roster is the active creature. All methods are
// safe for concurrent use.
type Trainer struct {
	ID        int64
	AccountID int64
	Name      string

	mu     sync.Mutex
	yen    int64
	won    int
	lost   int
	roster []*battle.Combatant
}

// Profile is a detached snapshot of a trainer for persistence and display.
type Profile struct {
	ID        int64
	AccountID int64
	Name      string
	Yen       int64
	Won       int
	Lost      int
	Roster    []*battle.Combatant
}

// NewTrainer creates an empty profile with no yen.
func NewTrainer(name string) *Trainer {
	return &Trainer{Name: name}
}

// FromProfile rebuilds a trainer from a snapshot. Negative counters are
// reset to zero and nil roster entries are dropped.
func FromProfile(p Profile) *Trainer {
	t := &Trainer{
		ID:        p.ID,
		AccountID: p.AccountID,
		Name:      p.Name,
		yen:       max(0, p.Yen),
		won:       max(0, p.Won),
		lost:      max(0, p.Lost),
	}
	for _, c := range p.Roster {
		if c != nil {
			t.roster = append(t.roster, c)
		}
	}
	return t
}

// Profile returns a snapshot. Roster entries are copies.
func (t *Trainer) Profile() Profile {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := Profile{
		ID:        t.ID,
		AccountID: t.AccountID,
		Name:      t.Name,
		Yen:       t.yen,
		Won:       t.won,
		Lost:      t.lost,
		Roster:    make([]*battle.Combatant, len(t.roster)),
	}
	for i, c := range t.roster {
		cp := c.Clone()
		cp.SetHP(c.HP())
		p.Roster[i] = cp
	}
	return p
}

// Yen returns the current balance.
func (t *Trainer) Yen() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.yen
}

// Deposit adds a positive amount to the balance.
func (t *Trainer) Deposit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.yen += amount
	return nil
}

// Spend deducts amount if the balance covers it. On error the balance is
// unchanged.
func (t *Trainer) Spend(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.yen < amount {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, amount, t.yen)
	}
	t.yen -= amount
	return nil
}

// Active returns the active creature, or nil if the roster is empty.
func (t *Trainer) Active() *battle.Combatant {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.roster) == 0 {
		return nil
	}
	return t.roster[0]
}

// BattleCopy returns a full-HP copy of the active creature that shares
// no state with the roster entry.
func (t *Trainer) BattleCopy() (*battle.Combatant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.roster) == 0 {
		return nil, false
	}
	return t.roster[0].Clone(), true
}

// Add appends a creature to the roster.
func (t *Trainer) Add(c *battle.Combatant) {
	if c == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roster = append(t.roster, c)
}

// SetActive moves the creature at slot (0-based) to the front.
func (t *Trainer) SetActive(slot int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= len(t.roster) {
		return ErrNoCreature
	}
	t.roster[0], t.roster[slot] = t.roster[slot], t.roster[0]
	return nil
}

// Remove deletes the creature at slot and returns it.
func (t *Trainer) Remove(slot int) (*battle.Combatant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= len(t.roster) {
		return nil, ErrNoCreature
	}
	c := t.roster[slot]
	t.roster = append(t.roster[:slot], t.roster[slot+1:]...)
	return c, nil
}

// Roster returns the roster slice header copy; entries are shared.
func (t *Trainer) Roster() []*battle.Combatant {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*battle.Combatant(nil), t.roster...)
}

// Owns reports whether any roster creature has the given species id.
func (t *Trainer) Owns(speciesID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.roster {
		if c.SpeciesID() == speciesID {
			return true
		}
	}
	return false
}

func (t *Trainer) RecordWin() {
	t.mu.Lock()
	t.won++
	t.mu.Unlock()
}

func (t *Trainer) RecordLoss() {
	t.mu.Lock()
	t.lost++
	t.mu.Unlock()
}

// Record returns battles won and lost.
func (t *Trainer) Record() (won, lost int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.won, t.lost
}
