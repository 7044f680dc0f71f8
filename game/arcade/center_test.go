package arcade

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/LeeIsaac1201/gaole/audit"
	"github.com/LeeIsaac1201/gaole/game/battle"
	"github.com/LeeIsaac1201/gaole/game/element"
	"github.com/LeeIsaac1201/gaole/game/player"
	"github.com/LeeIsaac1201/gaole/game/session"
	"github.com/LeeIsaac1201/gaole/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubRand returns fixed draws; Intn walks 0, 1, 2, ... modulo n.
type stubRand struct {
	f    float64
	norm float64
	next int
}

func (s *stubRand) Float64() float64     { return s.f }
func (s *stubRand) NormFloat64() float64 { return s.norm }
func (s *stubRand) Intn(n int) int {
	v := s.next % n
	s.next++
	return v
}

type spySaver struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (s *spySaver) Save(context.Context, *player.Trainer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return s.err
}

type spyAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *spyAudit) Log(e audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *spyAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

func weakling(id int, name string) resource.Species {
	return resource.Species{ID: id, Name: name, Types: []string{"Normal"}, MaxHP: 10, Attack: 1, Defense: 0}
}

func brute() resource.Species {
	return resource.Species{ID: 150, Name: "Brute", Types: []string{"Fighting"}, MaxHP: 1000, Attack: 500, Defense: 0}
}

func champion() *battle.Combatant {
	return battle.NewCombatant(battle.CombatantConfig{
		SpeciesID: 99, Name: "Champion",
		Types: []element.Element{element.Dragon},
		MaxHP: 1000, Attack: 500, Defense: 100,
		Moves: []battle.Move{battle.Tackle()},
	})
}

func fragile() *battle.Combatant {
	return battle.NewCombatant(battle.CombatantConfig{
		SpeciesID: 98, Name: "Fragile",
		MaxHP: 1, Attack: 1, Defense: 0,
		Moves: []battle.Move{battle.Tackle()},
	})
}

type fixture struct {
	center  *Center
	trainer *player.Trainer
	saver   *spySaver
	audit   *spyAudit
}

func newFixture(t *testing.T, yen int64, lead *battle.Combatant, rng Rand, species ...resource.Species) fixture {
	t.Helper()
	tr := player.FromProfile(player.Profile{ID: 1, AccountID: 10, Name: "Ash", Yen: yen})
	if lead != nil {
		tr.Add(lead)
	}
	f := fixture{trainer: tr, saver: &spySaver{}, audit: &spyAudit{}}
	f.center = NewCenter(tr, resource.NewCatalog(species, zap.NewNop()), Config{
		Limits: session.DefaultLimits(),
		RNG:    rng,
		Saver:  f.saver,
		Audit:  f.audit,
	})
	return f
}

func TestGetByBattle_PaysAndPlaysAllRounds(t *testing.T) {
	f := newFixture(t, 100, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))

	rep, err := f.center.GetByBattle(context.Background(), &Script{})
	require.NoError(t, err)
	assert.True(t, rep.Paid)
	require.Len(t, rep.Rounds, 3)
	for _, r := range rep.Rounds {
		assert.Equal(t, battle.PlayerWon, r.Result.Outcome)
		assert.NotEmpty(t, r.Lines)
	}
	assert.Equal(t, 3, rep.Entry.Played)
	assert.False(t, rep.Entry.Forfeited)
	assert.Equal(t, session.State{Active: true, BattleRemaining: 0, CatchRemaining: 9}, rep.Entry.State)
	assert.Equal(t, int64(0), rep.Yen)

	won, lost := f.trainer.Record()
	assert.Equal(t, 3, won)
	assert.Zero(t, lost)
	assert.Equal(t, []string{"session_pay", "get_by_battle"}, f.audit.actions())
	assert.Equal(t, int64(-100), f.audit.entries[0].YenDelta)
	assert.GreaterOrEqual(t, f.saver.saves, 2)
}

func TestGetByBattle_LossForfeitsSession(t *testing.T) {
	f := newFixture(t, 100, fragile(), &stubRand{f: 0.5}, brute())

	rep, err := f.center.GetByBattle(context.Background(), &Script{})
	require.NoError(t, err)
	require.Len(t, rep.Rounds, 1)
	assert.Equal(t, battle.OpponentWon, rep.Rounds[0].Result.Outcome)
	assert.True(t, rep.Entry.Forfeited)
	assert.Equal(t, session.State{}, rep.Entry.State)

	_, lost := f.trainer.Record()
	assert.Equal(t, 1, lost)
	// The roster entry is never touched by the battle.
	assert.Equal(t, 1, f.trainer.Active().HP())
}

func TestGetByBattle_StopWhenDeclined(t *testing.T) {
	f := newFixture(t, 100, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))

	rep, err := f.center.GetByBattle(context.Background(), &Script{Continue: Bool(false)})
	require.NoError(t, err)
	assert.Len(t, rep.Rounds, 1)
	assert.Equal(t, 2, rep.Entry.State.BattleRemaining)
	assert.True(t, rep.Entry.State.Active)
}

func TestGetByBattle_InsufficientFunds(t *testing.T) {
	f := newFixture(t, 50, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))

	rep, err := f.center.GetByBattle(context.Background(), &Script{})
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrDeclined)
	assert.ErrorIs(t, err, player.ErrInsufficientFunds)
	assert.False(t, rep.Paid)
	assert.Empty(t, rep.Rounds)
	assert.Equal(t, int64(50), f.trainer.Yen())
	assert.False(t, f.center.Status().Session.Active)
	require.Len(t, f.audit.entries, 1)
	assert.NotEmpty(t, f.audit.entries[0].Error)
}

func TestGetByBattle_InsertTopsUp(t *testing.T) {
	f := newFixture(t, 0, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))

	rep, err := f.center.GetByBattle(context.Background(), &Script{InsertYen: 150, Continue: Bool(false)})
	require.NoError(t, err)
	assert.True(t, rep.Paid)
	assert.Equal(t, int64(50), rep.Yen)
	assert.Equal(t, []string{"deposit", "session_pay", "get_by_battle"}, f.audit.actions())
}

func TestGetByBattle_NoActiveCreature(t *testing.T) {
	f := newFixture(t, 100, nil, &stubRand{f: 0.5}, weakling(1, "Weakling"))

	_, err := f.center.GetByBattle(context.Background(), &Script{})
	assert.ErrorIs(t, err, ErrNoActiveCreature)
	assert.Equal(t, int64(100), f.trainer.Yen())
}

func TestGetByBattle_NoRoundsLeftKeepsSession(t *testing.T) {
	f := newFixture(t, 500, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))
	ctx := context.Background()

	_, err := f.center.GetByBattle(ctx, &Script{})
	require.NoError(t, err)

	rep, err := f.center.GetByBattle(ctx, &Script{})
	assert.ErrorIs(t, err, session.ErrNoRounds)
	assert.False(t, rep.Paid)
	assert.Equal(t, int64(400), f.trainer.Yen(), "no second charge while the session is open")
	assert.Equal(t, 9, f.center.Status().Session.CatchRemaining)
}

func TestGetNow_KeepSkipsAlreadyOwned(t *testing.T) {
	f := newFixture(t, 300, champion(), &stubRand{f: 0.1}, weakling(1, "Eevee"))

	rep, err := f.center.GetNow(context.Background(), &Script{KeepAll: true, Continue: Bool(false)})
	require.NoError(t, err)
	require.Len(t, rep.Rounds, 1)
	r := rep.Rounds[0]
	require.Len(t, r.Throws, 2)
	assert.True(t, r.Throws[0].Caught)
	assert.InDelta(t, 0.5, r.Throws[0].Chance, 1e-9)
	assert.Equal(t, []string{"Eevee"}, r.Kept)
	assert.Equal(t, []string{"Eevee"}, r.Owned)
	assert.Equal(t, int64(100), rep.Yen)
	assert.Len(t, f.trainer.Roster(), 2)
	assert.Equal(t, 8, rep.Entry.State.CatchRemaining)

	kept := f.trainer.Roster()[1]
	assert.Equal(t, kept.MaxHP(), kept.HP())
	assert.NotEmpty(t, kept.Moves())
}

func TestGetNow_StopsAtInsufficientFunds(t *testing.T) {
	f := newFixture(t, 150, champion(), &stubRand{f: 0.1}, weakling(1, "Eevee"), weakling(2, "Vulpix"))

	rep, err := f.center.GetNow(context.Background(), &Script{Keep: []int{1, 2}, Continue: Bool(false)})
	require.NoError(t, err)
	r := rep.Rounds[0]
	assert.True(t, r.Short)
	assert.Empty(t, r.Kept)
	assert.Equal(t, int64(50), rep.Yen)
	assert.Len(t, f.trainer.Roster(), 1)
}

func TestGetNow_MissesNeverForfeit(t *testing.T) {
	f := newFixture(t, 100, nil, &stubRand{f: 0.99}, weakling(1, "Eevee"))

	rep, err := f.center.GetNow(context.Background(), &Script{KeepAll: true})
	require.NoError(t, err)
	assert.Len(t, rep.Rounds, 9)
	for _, r := range rep.Rounds {
		assert.Empty(t, r.Kept)
	}
	assert.False(t, rep.Entry.Forfeited)
	assert.Equal(t, session.State{Active: true, BattleRemaining: 3, CatchRemaining: 0}, rep.Entry.State)
}

func TestGetNow_IgnoresBadKeepIndices(t *testing.T) {
	f := newFixture(t, 500, nil, &stubRand{f: 0.1}, weakling(1, "Eevee"), weakling(2, "Vulpix"))

	rep, err := f.center.GetNow(context.Background(), &Script{Keep: []int{0, 3, 2, 2}, Continue: Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vulpix"}, rep.Rounds[0].Kept)
	assert.Equal(t, int64(300), rep.Yen)
}

func TestTrainerBattle_WinBuyRewardMakeActive(t *testing.T) {
	f := newFixture(t, 300, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))

	rep, err := f.center.TrainerBattle(context.Background(), &Script{BuyReward: Bool(true), MakeActive: Bool(true)})
	require.NoError(t, err)
	assert.True(t, rep.Paid)
	assert.Equal(t, battle.PlayerWon, rep.Result.Outcome)
	require.NotNil(t, rep.Reward)
	assert.True(t, rep.Bought)
	assert.True(t, rep.MadeActive)
	assert.Equal(t, "Weakling", f.trainer.Active().Name())
	assert.Equal(t, int64(100), rep.Yen)
	assert.Equal(t, session.State{Active: true, BattleRemaining: 3, CatchRemaining: 9}, rep.Session)
	assert.Contains(t, f.audit.actions(), "reward")
}

func TestTrainerBattle_OpponentBoosted(t *testing.T) {
	f := newFixture(t, 100, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))

	rep, err := f.center.TrainerBattle(context.Background(), &Script{})
	require.NoError(t, err)
	assert.Equal(t, 14, rep.Opponent.MaxHP)
	assert.Equal(t, 1, rep.Opponent.Attack)
	assert.Equal(t, 1, rep.Opponent.Defense)
	assert.False(t, rep.Bought)
	assert.Contains(t, rep.Lines, "Reward declined.")
}

func TestTrainerBattle_RewardUnaffordable(t *testing.T) {
	f := newFixture(t, 100, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))

	rep, err := f.center.TrainerBattle(context.Background(), &Script{BuyReward: Bool(true)})
	require.NoError(t, err)
	assert.False(t, rep.Bought)
	assert.Len(t, f.trainer.Roster(), 1)
	assert.Equal(t, int64(0), rep.Yen)
}

func TestTrainerBattle_LossKeepsSession(t *testing.T) {
	f := newFixture(t, 100, fragile(), &stubRand{f: 0.5}, brute())

	rep, err := f.center.TrainerBattle(context.Background(), &Script{})
	require.NoError(t, err)
	assert.Equal(t, battle.OpponentWon, rep.Result.Outcome)
	assert.Nil(t, rep.Reward)
	assert.Equal(t, session.State{Active: true, BattleRemaining: 3, CatchRemaining: 9}, rep.Session)
}

func TestLeave_NoRefund(t *testing.T) {
	f := newFixture(t, 100, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))
	ctx := context.Background()

	_, err := f.center.GetByBattle(ctx, &Script{Continue: Bool(false)})
	require.NoError(t, err)

	st := f.center.Leave(ctx)
	assert.Equal(t, session.State{}, st)
	assert.Equal(t, int64(0), f.trainer.Yen())
	assert.Contains(t, f.audit.actions(), "leave")
}

func TestDepositAndSetActive(t *testing.T) {
	f := newFixture(t, 0, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))
	f.trainer.Add(fragile())
	ctx := context.Background()

	bal, err := f.center.Deposit(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), bal)

	_, err = f.center.Deposit(ctx, -5)
	assert.ErrorIs(t, err, player.ErrInvalidAmount)

	snap, err := f.center.SetActive(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Fragile", snap.Name)

	_, err = f.center.SetActive(ctx, 7)
	assert.ErrorIs(t, err, player.ErrNoCreature)

	st := f.center.Status()
	require.NotNil(t, st.Active)
	assert.Equal(t, "Fragile", st.Active.Name)
	assert.Len(t, st.Roster, 2)
}

func TestSaveFailureKeepsLiveProfile(t *testing.T) {
	f := newFixture(t, 0, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))
	f.saver.err = errors.New("disk full")

	bal, err := f.center.Deposit(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal)
	assert.Equal(t, 1, f.saver.saves)
}

func TestCatchChance(t *testing.T) {
	full := battle.NewCombatant(battle.CombatantConfig{MaxHP: 11})
	assert.InDelta(t, 0.5, CatchChance(full, &stubRand{}), 1e-9)
	assert.Equal(t, 0.95, CatchChance(full, &stubRand{norm: 100}))
	assert.Equal(t, 0.05, CatchChance(full, &stubRand{norm: -100}))

	hurt := battle.NewCombatant(battle.CombatantConfig{MaxHP: 11, HP: 1})
	assert.InDelta(t, 0.5+(10.0/11.0)*0.2, CatchChance(hurt, &stubRand{}), 1e-9)
}

func TestOriginRoundTrip(t *testing.T) {
	assert.Equal(t, Origin{}, OriginFrom(context.Background()))
	ctx := WithOrigin(context.Background(), Origin{TraceID: "t-1", IP: "10.0.0.1"})
	assert.Equal(t, "t-1", OriginFrom(ctx).TraceID)
}

// liveScript is a Script that also watches the battle as it happens.
type liveScript struct {
	Script
	seen []string
}

func (l *liveScript) Emit(e battle.Event) { l.seen = append(l.seen, e.EventType()) }

func TestGetByBattle_StreamsEventsToInput(t *testing.T) {
	f := newFixture(t, 100, champion(), &stubRand{f: 0.5}, weakling(1, "Weakling"))
	in := &liveScript{Script: Script{Continue: Bool(false)}}

	rep, err := f.center.GetByBattle(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, rep.Rounds, 1)
	require.NotEmpty(t, in.seen)
	assert.Equal(t, "battle_start", in.seen[0])
	assert.Equal(t, "battle_end", in.seen[len(in.seen)-1])
	assert.Len(t, in.seen, len(rep.Rounds[0].Lines))
}
