package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func always(v bool) ContinueFunc { return func(int, int) bool { return v } }

func openMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(DefaultLimits(), nil)
	require.NoError(t, m.Pay(&purse{yen: 100}))
	return m
}

func TestPlayRounds_LossInFirstBattleForfeits(t *testing.T) {
	m := openMachine(t)
	calls := 0
	e, err := m.PlayRounds(Battle, func(n, allowed int) (bool, error) {
		calls++
		return true, nil
	}, always(true))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, e.Forfeited)
	assert.Equal(t, 1, e.Played)
	assert.Equal(t, State{}, e.State)
	assert.False(t, m.Active())
}

func TestPlayRounds_AllBattlesWon(t *testing.T) {
	m := openMachine(t)
	asked := 0
	e, err := m.PlayRounds(Battle, func(int, int) (bool, error) { return false, nil },
		func(n, allowed int) bool { asked++; return true })

	require.NoError(t, err)
	assert.Equal(t, 3, e.Played)
	assert.Equal(t, 2, asked, "no prompt after the last allowed round")
	assert.Equal(t, State{Active: true, BattleRemaining: 0, CatchRemaining: 9}, e.State)

	_, err = m.PlayRounds(Battle, func(int, int) (bool, error) { return false, nil }, always(true))
	assert.ErrorIs(t, err, ErrNoRounds)
}

func TestPlayRounds_DeclineStopsEarly(t *testing.T) {
	m := openMachine(t)
	e, err := m.PlayRounds(Catch, func(int, int) (bool, error) { return false, nil }, always(false))
	require.NoError(t, err)
	assert.Equal(t, 1, e.Played)
	assert.Equal(t, 8, m.Remaining(Catch))
	assert.Equal(t, 9, e.Allowed)
}

func TestPlayRounds_CatchNeverForfeits(t *testing.T) {
	m := openMachine(t)
	e, err := m.PlayRounds(Catch, func(int, int) (bool, error) { return true, nil }, always(true))
	require.NoError(t, err)
	assert.False(t, e.Forfeited)
	assert.Equal(t, 9, e.Played)
	assert.Equal(t, State{Active: true, BattleRemaining: 3}, e.State)
}

func TestPlayRounds_ExhaustionClosesSession(t *testing.T) {
	m := openMachine(t)
	_, err := m.PlayRounds(Catch, func(int, int) (bool, error) { return false, nil }, always(true))
	require.NoError(t, err)
	e, err := m.PlayRounds(Battle, func(int, int) (bool, error) { return false, nil }, always(true))
	require.NoError(t, err)
	assert.False(t, e.State.Active)
	assert.False(t, m.Active())
}

func TestPlayRounds_Inactive(t *testing.T) {
	m := NewMachine(DefaultLimits(), nil)
	_, err := m.PlayRounds(Battle, func(int, int) (bool, error) { return false, nil }, nil)
	assert.ErrorIs(t, err, ErrInactive)
}

func TestPlayRounds_ErrorConsumesPlayed(t *testing.T) {
	m := openMachine(t)
	boom := errors.New("no wild creatures")
	e, err := m.PlayRounds(Battle, func(n, _ int) (bool, error) {
		if n == 2 {
			return false, boom
		}
		return false, nil
	}, always(true))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, e.Played)
	assert.Equal(t, 2, m.Remaining(Battle))
}
