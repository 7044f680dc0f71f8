package battle

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Outcome of a battle.
const (
	Ongoing Outcome = iota
	PlayerWon
	OpponentWon
)

// Outcome is the state of the battle state machine.
type Outcome int

func (o Outcome) String() string {
	switch o {
	case PlayerWon:
		return "player_won"
	case OpponentWon:
		return "opponent_won"
	default:
		return "ongoing"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// DefaultMaxCycles bounds battles in which no move can deal damage.
const DefaultMaxCycles = 1000

// Chooser supplies the player's move choice as a 1-based index into the
// moveset. Anything out of range selects the first move.
type Chooser interface {
	ChooseMove(self *Combatant, cycle int) int
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(self *Combatant, cycle int) int

func (f ChooserFunc) ChooseMove(self *Combatant, cycle int) int { return f(self, cycle) }

// FirstMove always picks the first move.
var FirstMove = ChooserFunc(func(*Combatant, int) int { return 1 })

// Config configures an Engine.
type Config struct {
	RNG       Source      // injectable for testing; nil = time-seeded
	Logger    *zap.Logger // nil = no logging
	Chooser   Chooser     // nil = FirstMove
	Sink      Sink        // nil = events are dropped
	MaxCycles int         // 0 = DefaultMaxCycles
}

// Result is the terminal report of a battle.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	Cycles     int     `json:"cycles"`
	PlayerHP   int     `json:"player_hp"`
	OpponentHP int     `json:"opponent_hp"`
	Stalemate  bool    `json:"stalemate,omitempty"`
}

// Engine runs a single battle between battle-local copies of two
// combatants. The combatants handed to New are never modified.
type Engine struct {
	player   *Combatant
	opponent *Combatant

	rng       Source
	logger    *zap.Logger
	chooser   Chooser
	sink      Sink
	maxCycles int

	cycles  int
	outcome Outcome
}

// New creates an engine. Both combatants are cloned at full HP.
func New(player, opponent *Combatant, cfg Config) *Engine {
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Chooser == nil {
		cfg.Chooser = FirstMove
	}
	if cfg.Sink == nil {
		cfg.Sink = discard{}
	}
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = DefaultMaxCycles
	}
	return &Engine{
		player:    player.Clone(),
		opponent:  opponent.Clone(),
		rng:       cfg.RNG,
		logger:    cfg.Logger,
		chooser:   cfg.Chooser,
		sink:      cfg.Sink,
		maxCycles: cfg.MaxCycles,
	}
}

// Player returns the battle-local player combatant.
func (e *Engine) Player() *Combatant { return e.player }

// Opponent returns the battle-local opponent combatant.
func (e *Engine) Opponent() *Combatant { return e.opponent }

// Outcome returns the current state.
func (e *Engine) Outcome() Outcome { return e.outcome }

// Run plays turn pairs until one side faints. Blocks until the battle ends.
func (e *Engine) Run() Result {
	e.sink.Emit(EventBattleStart{Player: e.player.Snapshot(), Opponent: e.opponent.Snapshot()})
	e.logger.Debug("battle start",
		zap.String("player", e.player.Name()),
		zap.String("opponent", e.opponent.Name()))

	stalemate := false
	for e.outcome == Ongoing {
		if e.cycles >= e.maxCycles {
			stalemate = true
			e.outcome = e.judge()
			break
		}
		e.Step()
	}

	res := Result{
		Outcome:    e.outcome,
		Cycles:     e.cycles,
		PlayerHP:   e.player.HP(),
		OpponentHP: e.opponent.HP(),
		Stalemate:  stalemate,
	}
	loser := e.opponent.Name()
	if e.outcome == OpponentWon {
		loser = e.player.Name()
	}
	e.sink.Emit(EventBattleEnd{Outcome: e.outcome, Cycles: e.cycles, Loser: loser, Stalemate: stalemate})
	e.logger.Info("battle end",
		zap.String("outcome", e.outcome.String()),
		zap.Int("cycles", e.cycles),
		zap.Bool("stalemate", stalemate))
	return res
}

// Step runs one turn pair and returns the resulting state. Calling Step
// after the battle has ended is a no-op.
func (e *Engine) Step() Outcome {
	if e.outcome != Ongoing {
		return e.outcome
	}
	e.cycles++

	if !e.player.IsFainted() {
		e.playerTurn()
	}
	// A knocked-out opponent gets no reply this cycle.
	if e.opponent.IsFainted() {
		e.outcome = PlayerWon
		return e.outcome
	}

	e.opponentTurn()

	switch {
	case e.player.IsFainted():
		e.outcome = OpponentWon
	case e.opponent.IsFainted():
		// Struggle recoil.
		e.outcome = PlayerWon
	default:
		e.sink.Emit(EventStatus{
			Cycle:      e.cycles,
			PlayerName: e.player.Name(),
			PlayerHP:   e.player.HP(),
			PlayerMax:  e.player.MaxHP(),
			OppName:    e.opponent.Name(),
			OppHP:      e.opponent.HP(),
			OppMax:     e.opponent.MaxHP(),
		})
	}
	return e.outcome
}

func (e *Engine) playerTurn() {
	moves := e.player.moves
	if len(moves) == 0 {
		e.act(SidePlayer, e.player, e.opponent, Struggle(), false)
		return
	}
	choice := e.chooser.ChooseMove(e.player, e.cycles)
	fallback := choice < 1 || choice > len(moves)
	if fallback {
		e.logger.Debug("invalid move choice, using first move", zap.Int("choice", choice))
		choice = 1
	}
	e.act(SidePlayer, e.player, e.opponent, moves[choice-1], fallback)
}

func (e *Engine) opponentTurn() {
	moves := e.opponent.moves
	if len(moves) == 0 {
		e.act(SideOpponent, e.opponent, e.player, Struggle(), false)
		return
	}
	e.act(SideOpponent, e.opponent, e.player, moves[e.rng.Intn(len(moves))], false)
}

func (e *Engine) act(side Side, actor, target *Combatant, m Move, fallback bool) {
	h := m.Execute(actor, target, e.rng)
	e.sink.Emit(EventMoveUsed{
		Actor:         side,
		ActorName:     actor.Name(),
		TargetName:    target.Name(),
		Move:          m.Name(),
		Damage:        h.Damage,
		Recoil:        h.Recoil,
		Effectiveness: h.Effectiveness,
		Fallback:      fallback,
		TargetHP:      target.HP(),
		ActorHP:       actor.HP(),
		Verdict:       h.Verdict.Message(),
	})
}

// judge settles a battle that hit the cycle cap: the side with the lower
// remaining HP fraction loses and ties go to the opponent.
func (e *Engine) judge() Outcome {
	p := float64(e.player.HP()) / float64(e.player.MaxHP())
	o := float64(e.opponent.HP()) / float64(e.opponent.MaxHP())
	if p > o {
		return PlayerWon
	}
	return OpponentWon
}
