// Package session meters arcade play: a paid credit opens a session that
// authorises a bounded number of battle and catch rounds.
package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrSessionActive = errors.New("session: already active")
	ErrInactive      = errors.New("session: no active session")
	ErrNoRounds      = errors.New("session: no rounds remaining")
	ErrDeclined      = errors.New("session: payment declined")
)

// Round kinds.
const (
	Battle Kind = iota
	Catch
)

// Kind selects which counter a round draws from.
type Kind int

func (k Kind) String() string {
	if k == Catch {
		return "catch"
	}
	return "battle"
}

// Wallet is charged when a session is opened. A failed Spend must leave
// the balance unchanged.
type Wallet interface {
	Spend(amount int64) error
}

// Limits configures the price and size of a session.
type Limits struct {
	Cost           int64
	BattleRounds   int // counter value after paying
	CatchRounds    int
	BattlePerEntry int // cap on rounds played in one visit to a mode
	CatchPerEntry  int
}

// DefaultLimits is ¥100 for 3 battle and 9 catch rounds.
func DefaultLimits() Limits {
	return Limits{Cost: 100, BattleRounds: 3, CatchRounds: 9, BattlePerEntry: 3, CatchPerEntry: 9}
}

func (l Limits) normalize() Limits {
	d := DefaultLimits()
	if l.Cost <= 0 {
		l.Cost = d.Cost
	}
	if l.BattleRounds <= 0 {
		l.BattleRounds = d.BattleRounds
	}
	if l.CatchRounds <= 0 {
		l.CatchRounds = d.CatchRounds
	}
	if l.BattlePerEntry <= 0 {
		l.BattlePerEntry = l.BattleRounds
	}
	if l.CatchPerEntry <= 0 {
		l.CatchPerEntry = l.CatchRounds
	}
	return l
}

// State is a snapshot of the machine.
type State struct {
	Active          bool `json:"active"`
	BattleRemaining int  `json:"battle_remaining"`
	CatchRemaining  int  `json:"catch_remaining"`
}

// Machine is the session admission state machine. Counters never go
// negative and an active session with both counters at zero is closed
// immediately. Safe for concurrent use.
type Machine struct {
	mu     sync.Mutex
	limits Limits
	active bool
	battle int
	catch  int
	logger *zap.Logger
}

// NewMachine returns an inactive machine.
func NewMachine(limits Limits, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{limits: limits.normalize(), logger: logger}
}

// Limits returns the effective limits.
func (m *Machine) Limits() Limits { return m.limits }

// Active reports whether a paid session is open.
func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Active: m.active, BattleRemaining: m.battle, CatchRemaining: m.catch}
}

// Pay charges the session cost to w and opens a full session. It fails
// with ErrSessionActive if a session is already open, or with an error
// wrapping both ErrDeclined and the wallet's error if the charge fails.
func (m *Machine) Pay(w Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return ErrSessionActive
	}
	if m.limits.BattleRounds+m.limits.CatchRounds == 0 {
		return ErrNoRounds
	}
	if err := w.Spend(m.limits.Cost); err != nil {
		return fmt.Errorf("%w: %w", ErrDeclined, err)
	}
	m.active = true
	m.battle = m.limits.BattleRounds
	m.catch = m.limits.CatchRounds
	m.logger.Info("session opened",
		zap.Int64("cost", m.limits.Cost),
		zap.Int("battle", m.battle),
		zap.Int("catch", m.catch))
	m.closeIfSpentLocked()
	return nil
}

// Ensure pays for a session when none is open. It reports whether a
// payment was made.
func (m *Machine) Ensure(w Wallet) (bool, error) {
	err := m.Pay(w)
	if errors.Is(err, ErrSessionActive) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remaining returns the counter for k.
func (m *Machine) Remaining(k Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.counterLocked(k)
}

// Allowance is how many rounds of k one entry may play: the per-entry cap
// or the remaining count, whichever is smaller. Zero when inactive.
func (m *Machine) Allowance(k Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return 0
	}
	limit := m.limits.BattlePerEntry
	if k == Catch {
		limit = m.limits.CatchPerEntry
	}
	return min(limit, *m.counterLocked(k))
}

// Consume deducts up to n rounds of k and returns how many were taken.
func (m *Machine) Consume(k Kind, n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || n <= 0 {
		return 0
	}
	c := m.counterLocked(k)
	taken := min(n, *c)
	*c -= taken
	m.closeIfSpentLocked()
	return taken
}

// Forfeit zeroes both counters and closes the session.
func (m *Machine) Forfeit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		m.logger.Info("session forfeited",
			zap.Int("battle_lost", m.battle),
			zap.Int("catch_lost", m.catch))
	}
	m.active, m.battle, m.catch = false, 0, 0
}

// Exit closes the session without refund.
func (m *Machine) Exit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		m.logger.Info("session exited",
			zap.Int("battle_left", m.battle),
			zap.Int("catch_left", m.catch))
	}
	m.active, m.battle, m.catch = false, 0, 0
}

func (m *Machine) counterLocked(k Kind) *int {
	if k == Catch {
		return &m.catch
	}
	return &m.battle
}

func (m *Machine) closeIfSpentLocked() {
	if m.active && m.battle <= 0 && m.catch <= 0 {
		m.active, m.battle, m.catch = false, 0, 0
		m.logger.Info("session rounds exhausted")
	}
}
