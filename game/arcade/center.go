// Package arcade runs the creature centre: the three play modes built on
// top of the session meter, the battle engine and the species catalog.
package arcade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeeIsaac1201/gaole/audit"
	"github.com/LeeIsaac1201/gaole/config"
	"github.com/LeeIsaac1201/gaole/game/battle"
	"github.com/LeeIsaac1201/gaole/game/player"
	"github.com/LeeIsaac1201/gaole/game/session"
	"github.com/LeeIsaac1201/gaole/resource"
	"go.uber.org/zap"
)

var ErrNoActiveCreature = errors.New("arcade: trainer has no active creature")

// Rand is the randomness a centre draws from. *rand.Rand satisfies it.
type Rand interface {
	battle.Source
	NormFloat64() float64
}

// Saver persists a trainer after an economic action.
type Saver interface {
	Save(ctx context.Context, t *player.Trainer) error
}

// Auditor records economic actions. *audit.Service satisfies it.
type Auditor interface {
	Log(entry audit.Entry)
}

// Config tunes a centre.
type Config struct {
	Limits        session.Limits
	KeepCost      int64
	RewardCost    int64
	BallsPerRound int
	TrainerPower  float64
	TrainerGuard  float64
	MaxCycles     int

	Seed   int64 // 0 = time-seeded; ignored when RNG is set
	RNG    Rand  // must not be shared between centres
	Logger *zap.Logger
	Saver  Saver
	Audit  Auditor
}

// FromConfig maps the arcade config section.
func FromConfig(a config.ArcadeConfig) Config {
	return Config{
		Limits: session.Limits{
			Cost:           a.SessionCost,
			BattleRounds:   a.BattleRounds,
			CatchRounds:    a.CatchRounds,
			BattlePerEntry: a.BattlePerEntry,
			CatchPerEntry:  a.CatchPerEntry,
		},
		KeepCost:      a.KeepCost,
		RewardCost:    a.RewardCost,
		BallsPerRound: a.BallsPerRound,
		TrainerPower:  a.TrainerPower,
		TrainerGuard:  a.TrainerGuard,
		MaxCycles:     a.MaxCycles,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.KeepCost <= 0 {
		cfg.KeepCost = 100
	}
	if cfg.RewardCost <= 0 {
		cfg.RewardCost = 100
	}
	if cfg.BallsPerRound <= 0 {
		cfg.BallsPerRound = 2
	}
	if cfg.TrainerPower <= 0 {
		cfg.TrainerPower = 1.4
	}
	if cfg.TrainerGuard <= 0 {
		cfg.TrainerGuard = 1.3
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RNG == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		cfg.RNG = rand.New(rand.NewSource(seed))
	}
	return cfg
}

// Center is one trainer's visit to the arcade. Operations are serialised.
type Center struct {
	mu       sync.Mutex
	trainer  *player.Trainer
	machine  *session.Machine
	catalog  *resource.Catalog
	cfg      Config
	logger   *zap.Logger
	lastUsed atomic.Int64 // unix nanos
	inFlight atomic.Int32
}

// NewCenter opens a centre for t with an inactive session.
func NewCenter(t *player.Trainer, cat *resource.Catalog, cfg Config) *Center {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With(zap.Int64("trainer_id", t.ID))
	c := &Center{
		trainer: t,
		machine: session.NewMachine(cfg.Limits, logger),
		catalog: cat,
		cfg:     cfg,
		logger:  logger,
	}
	c.touch()
	return c
}

// Trainer returns the live profile bound to this centre.
func (c *Center) Trainer() *player.Trainer { return c.trainer }

// begin serialises an operation. The centre counts as busy from the
// moment it queues until the returned func runs, and the idle clock is
// reset at both ends.
func (c *Center) begin() func() {
	c.inFlight.Add(1)
	c.mu.Lock()
	c.touch()
	return func() {
		c.touch()
		c.mu.Unlock()
		c.inFlight.Add(-1)
	}
}

func (c *Center) touch() { c.lastUsed.Store(time.Now().UnixNano()) }

// LastUsed reports when the centre last started or finished an operation.
func (c *Center) LastUsed() time.Time { return time.Unix(0, c.lastUsed.Load()) }

// Busy reports whether an operation is running or waiting to run.
func (c *Center) Busy() bool { return c.inFlight.Load() > 0 }

// Status is the player-facing summary of the centre.
type Status struct {
	TrainerID int64                      `json:"trainer_id"`
	Name      string                     `json:"name"`
	Yen       int64                      `json:"yen"`
	Won       int                        `json:"battles_won"`
	Lost      int                        `json:"battles_lost"`
	Session   session.State              `json:"session"`
	Active    *battle.CombatantSnapshot  `json:"active,omitempty"`
	Roster    []battle.CombatantSnapshot `json:"roster"`
}

// Status reports balance, record, session counters and roster. It does
// not wait for a running operation, so mid-play it shows the counters
// and balance as they stand.
func (c *Center) Status() Status {
	won, lost := c.trainer.Record()
	st := Status{
		TrainerID: c.trainer.ID,
		Name:      c.trainer.Name,
		Yen:       c.trainer.Yen(),
		Won:       won,
		Lost:      lost,
		Session:   c.machine.Snapshot(),
		Roster:    []battle.CombatantSnapshot{},
	}
	for i, m := range c.trainer.Roster() {
		snap := m.Snapshot()
		if i == 0 {
			st.Active = &snap
		}
		st.Roster = append(st.Roster, snap)
	}
	return st
}

// Deposit inserts yen into the trainer's balance.
func (c *Center) Deposit(ctx context.Context, amount int64) (int64, error) {
	defer c.begin()()
	start := time.Now()
	if err := c.trainer.Deposit(amount); err != nil {
		return c.trainer.Yen(), err
	}
	c.commit(ctx, "deposit", "", amount, start, map[string]int64{"amount": amount}, nil)
	return c.trainer.Yen(), nil
}

// SetActive moves the roster creature at slot (0-based) to the front.
func (c *Center) SetActive(ctx context.Context, slot int) (battle.CombatantSnapshot, error) {
	defer c.begin()()
	start := time.Now()
	if err := c.trainer.SetActive(slot); err != nil {
		return battle.CombatantSnapshot{}, err
	}
	active := c.trainer.Active().Snapshot()
	c.commit(ctx, "set_active", "", 0, start, map[string]int{"slot": slot}, active)
	return active, nil
}

// Leave ends the session without refund.
func (c *Center) Leave(ctx context.Context) session.State {
	defer c.begin()()
	start := time.Now()
	was := c.machine.Snapshot()
	c.machine.Exit()
	if was.Active {
		c.commit(ctx, "leave", "", 0, start, nil, was)
	}
	return c.machine.Snapshot()
}

// admit makes sure a session is open, charging for a new one if needed.
// A short balance is first topped up with whatever the input inserts.
func (c *Center) admit(ctx context.Context, in Input, mode string) (bool, error) {
	if c.machine.Active() {
		return false, nil
	}
	start := time.Now()
	cost := c.machine.Limits().Cost
	if bal := c.trainer.Yen(); bal < cost {
		if add := in.Insert(bal, cost); add > 0 {
			if err := c.trainer.Deposit(add); err == nil {
				c.commit(ctx, "deposit", mode, add, start, map[string]int64{"amount": add}, nil)
			}
		}
	}
	if err := c.machine.Pay(c.trainer); err != nil {
		c.record(ctx, "session_pay", mode, 0, start, nil, nil, err)
		return false, err
	}
	c.commit(ctx, "session_pay", mode, -cost, start, nil, c.machine.Snapshot())
	return true, nil
}

// fight runs one battle between a fresh copy of the active creature and
// opp, recording the result on the profile.
func (c *Center) fight(opp *battle.Combatant, in Input) (battle.Result, []string, error) {
	mine, ok := c.trainer.BattleCopy()
	if !ok {
		return battle.Result{}, nil, ErrNoActiveCreature
	}
	battle.EnsureMoves(mine)
	battle.EnsureMoves(opp)

	rec := &battle.Recorder{}
	sinks := battle.Tee{rec, battle.LogSink{Logger: c.logger}}
	if live, ok := in.(battle.Sink); ok {
		sinks = append(sinks, live)
	}
	res := battle.New(mine, opp, battle.Config{
		RNG:       c.cfg.RNG,
		Logger:    c.logger,
		Chooser:   in,
		Sink:      sinks,
		MaxCycles: c.cfg.MaxCycles,
	}).Run()

	if res.Outcome == battle.PlayerWon {
		c.trainer.RecordWin()
	} else {
		c.trainer.RecordLoss()
	}
	return res, rec.Lines(), nil
}

// ---- Get by Battle ----

// BattleRound is one wild battle.
type BattleRound struct {
	Round    int                      `json:"round"`
	Opponent battle.CombatantSnapshot `json:"opponent"`
	Result   battle.Result            `json:"result"`
	Lines    []string                 `json:"lines"`
}

// BattleReport summarises a Get by Battle visit.
type BattleReport struct {
	Paid   bool          `json:"paid"`
	Entry  session.Entry `json:"entry"`
	Rounds []BattleRound `json:"rounds"`
	Yen    int64         `json:"yen"`
}

// GetByBattle battles random wild creatures, one per round, up to the
// mode's allowance. A loss forfeits the rest of the session.
func (c *Center) GetByBattle(ctx context.Context, in Input) (BattleReport, error) {
	defer c.begin()()
	start := time.Now()

	var rep BattleReport
	if c.trainer.Active() == nil {
		return rep, ErrNoActiveCreature
	}
	paid, err := c.admit(ctx, in, session.Battle.String())
	rep.Paid = paid
	if err != nil {
		rep.Yen = c.trainer.Yen()
		return rep, err
	}

	rep.Entry, err = c.machine.PlayRounds(session.Battle,
		func(n, allowed int) (bool, error) {
			wild := c.catalog.Random(c.cfg.RNG).Combatant()
			res, lines, err := c.fight(wild, in)
			if err != nil {
				return false, err
			}
			rep.Rounds = append(rep.Rounds, BattleRound{
				Round:    n,
				Opponent: wild.Snapshot(),
				Result:   res,
				Lines:    lines,
			})
			return res.Outcome == battle.OpponentWon, nil
		},
		func(n, allowed int) bool { return in.Confirm(AskContinue, true) })
	rep.Yen = c.trainer.Yen()

	c.record(ctx, "get_by_battle", session.Battle.String(), 0, start, in, rep.Entry, err)
	c.save(ctx)
	return rep, err
}

// ---- Get Now ----

// Throw is one Quick Ball attempt.
type Throw struct {
	Target battle.CombatantSnapshot `json:"target"`
	Chance float64                  `json:"chance"`
	Caught bool                     `json:"caught"`
}

// CatchRound is one Get Now round: the throws and what was kept.
type CatchRound struct {
	Round  int      `json:"round"`
	Throws []Throw  `json:"throws"`
	Kept   []string `json:"kept,omitempty"`
	Owned  []string `json:"already_owned,omitempty"`
	Short  bool     `json:"insufficient_funds,omitempty"`
	Lines  []string `json:"lines"`
}

// CatchReport summarises a Get Now visit.
type CatchReport struct {
	Paid   bool          `json:"paid"`
	Entry  session.Entry `json:"entry"`
	Rounds []CatchRound  `json:"rounds"`
	Yen    int64         `json:"yen"`
}

// CatchChance is the Quick Ball success probability for target: a base
// of one half, raised by missing HP, jittered by rng and clamped to
// [0.05, 0.95].
func CatchChance(target *battle.Combatant, rng Rand) float64 {
	maxHP := float64(target.MaxHP())
	hpFactor := (maxHP - float64(max(1, target.HP()))) / maxHP
	chance := 0.5 + hpFactor*0.2 + rng.NormFloat64()*0.05
	return math.Min(0.95, math.Max(0.05, chance))
}

// GetNow throws Quick Balls at wild creatures. Caught creatures may be
// kept for KeepCost each; a lost throw never ends the session.
func (c *Center) GetNow(ctx context.Context, in Input) (CatchReport, error) {
	defer c.begin()()
	start := time.Now()

	var rep CatchReport
	paid, err := c.admit(ctx, in, session.Catch.String())
	rep.Paid = paid
	if err != nil {
		rep.Yen = c.trainer.Yen()
		return rep, err
	}

	rep.Entry, err = c.machine.PlayRounds(session.Catch,
		func(n, allowed int) (bool, error) {
			rep.Rounds = append(rep.Rounds, c.catchRound(ctx, n, in))
			return false, nil
		},
		func(n, allowed int) bool { return in.Confirm(AskContinue, true) })
	rep.Yen = c.trainer.Yen()

	c.record(ctx, "get_now", session.Catch.String(), 0, start, in, rep.Entry, err)
	c.save(ctx)
	return rep, err
}

func (c *Center) catchRound(ctx context.Context, n int, in Input) CatchRound {
	round := CatchRound{Round: n}
	var caught []*battle.Combatant
	for i := 0; i < c.cfg.BallsPerRound; i++ {
		wild := c.catalog.Random(c.cfg.RNG).Combatant()
		chance := CatchChance(wild, c.cfg.RNG)
		ok := c.cfg.RNG.Float64() < chance
		round.Throws = append(round.Throws, Throw{Target: wild.Snapshot(), Chance: chance, Caught: ok})
		if ok {
			caught = append(caught, wild)
			round.Lines = append(round.Lines, fmt.Sprintf("You caught %s!", wild.Name()))
		} else {
			round.Lines = append(round.Lines, fmt.Sprintf("%s broke free.", wild.Name()))
		}
	}
	if len(caught) == 0 {
		round.Lines = append(round.Lines, "No creature caught this round.")
		return round
	}

	snaps := make([]battle.CombatantSnapshot, len(caught))
	for i, m := range caught {
		snaps[i] = m.Snapshot()
	}
	seen := make(map[int]bool)
	for _, idx := range in.PickKeep(snaps) {
		if idx < 1 || idx > len(caught) || seen[idx] {
			continue
		}
		seen[idx] = true
		m := caught[idx-1]
		if c.trainer.Owns(m.SpeciesID()) {
			round.Owned = append(round.Owned, m.Name())
			round.Lines = append(round.Lines, fmt.Sprintf("You already own a %s. Skipping it.", m.Name()))
			continue
		}
		start := time.Now()
		if err := c.trainer.Spend(c.cfg.KeepCost); err != nil {
			round.Short = true
			round.Lines = append(round.Lines, fmt.Sprintf("Not enough yen to keep %s. Stopping purchases.", m.Name()))
			break
		}
		m.Heal()
		battle.EnsureMoves(m)
		c.trainer.Add(m)
		round.Kept = append(round.Kept, m.Name())
		round.Lines = append(round.Lines, fmt.Sprintf("¥%d deducted. %s has been added to your collection.", c.cfg.KeepCost, m.Name()))
		c.commit(ctx, "keep", session.Catch.String(), -c.cfg.KeepCost, start, nil, m.Snapshot())
	}
	return round
}

// ---- Trainer and Battle ----

// TrainerReport summarises a trainer battle.
type TrainerReport struct {
	Paid       bool                      `json:"paid"`
	Opponent   battle.CombatantSnapshot  `json:"opponent"`
	Result     battle.Result             `json:"result"`
	Lines      []string                  `json:"lines"`
	Reward     *battle.CombatantSnapshot `json:"reward,omitempty"`
	Bought     bool                      `json:"bought"`
	MadeActive bool                      `json:"made_active"`
	Session    session.State             `json:"session"`
	Yen        int64                     `json:"yen"`
}

// TrainerBattle fights a boosted trainer creature. It needs an open
// session but uses none of its rounds. A win offers a reward creature
// for RewardCost.
func (c *Center) TrainerBattle(ctx context.Context, in Input) (TrainerReport, error) {
	defer c.begin()()
	start := time.Now()

	var rep TrainerReport
	if c.trainer.Active() == nil {
		return rep, ErrNoActiveCreature
	}
	paid, err := c.admit(ctx, in, "trainer")
	rep.Paid = paid
	if err != nil {
		rep.Yen = c.trainer.Yen()
		rep.Session = c.machine.Snapshot()
		return rep, err
	}

	opp := c.catalog.Random(c.cfg.RNG).Combatant().Scale(c.cfg.TrainerPower, c.cfg.TrainerGuard)
	rep.Opponent = opp.Snapshot()
	rep.Result, rep.Lines, err = c.fight(opp, in)
	if err != nil {
		return rep, err
	}

	if rep.Result.Outcome == battle.PlayerWon {
		reward := c.catalog.Random(c.cfg.RNG).Combatant()
		snap := reward.Snapshot()
		rep.Reward = &snap
		rep.Lines = append(rep.Lines, fmt.Sprintf("You earned a reward: %s.", reward.Name()))
		if in.Confirm(AskBuyReward, false) {
			buyStart := time.Now()
			if err := c.trainer.Spend(c.cfg.RewardCost); err != nil {
				rep.Lines = append(rep.Lines, fmt.Sprintf("You don't have ¥%d. Cannot add reward to collection.", c.cfg.RewardCost))
			} else {
				battle.EnsureMoves(reward)
				c.trainer.Add(reward)
				rep.Bought = true
				rep.Lines = append(rep.Lines, fmt.Sprintf("¥%d deducted. %s added to your collection.", c.cfg.RewardCost, reward.Name()))
				if in.Confirm(AskMakeActive, false) {
					rep.MadeActive = c.trainer.SetActive(len(c.trainer.Roster())-1) == nil
				}
				c.commit(ctx, "reward", "trainer", -c.cfg.RewardCost, buyStart, nil, reward.Snapshot())
			}
		} else {
			rep.Lines = append(rep.Lines, "Reward declined.")
		}
	} else {
		rep.Lines = append(rep.Lines, "Trainer battle ended.")
	}
	rep.Session = c.machine.Snapshot()
	rep.Yen = c.trainer.Yen()

	c.record(ctx, "trainer_battle", "trainer", 0, start, in, rep.Result, nil)
	c.save(ctx)
	return rep, nil
}

// ---- persistence ----

// commit audits a successful economic action and saves the trainer.
func (c *Center) commit(ctx context.Context, action, mode string, delta int64, start time.Time, req, resp interface{}) {
	c.record(ctx, action, mode, delta, start, req, resp, nil)
	c.save(ctx)
}

func (c *Center) record(ctx context.Context, action, mode string, delta int64, start time.Time, req, resp interface{}, err error) {
	if c.cfg.Audit == nil {
		return
	}
	o := OriginFrom(ctx)
	trainerID, accountID := c.trainer.ID, c.trainer.AccountID
	e := audit.Entry{
		TraceID:     o.TraceID,
		TrainerID:   &trainerID,
		AccountID:   &accountID,
		TrainerName: c.trainer.Name,
		Action:      action,
		Mode:        mode,
		YenDelta:    delta,
		Request:     req,
		Response:    resp,
		IP:          o.IP,
		DurationMs:  int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		e.Error = err.Error()
	}
	c.cfg.Audit.Log(e)
}

// save hands the trainer to the persistence sink. The in-memory profile
// stays authoritative when a save fails.
func (c *Center) save(ctx context.Context) {
	if c.cfg.Saver == nil {
		return
	}
	if err := c.cfg.Saver.Save(ctx, c.trainer); err != nil {
		c.logger.Error("save trainer failed", zap.Error(err))
	}
}

// ---- request origin ----

// Origin identifies the request behind an action for the audit trail.
type Origin struct {
	TraceID string
	IP      string
}

type originKey struct{}

// WithOrigin attaches o to ctx.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the Origin attached to ctx, if any.
func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}
