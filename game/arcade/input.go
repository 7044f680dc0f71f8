package arcade

import "github.com/LeeIsaac1201/gaole/game/battle"

// Question identifies a yes/no prompt put to the player.
type Question int

const (
	AskContinue   Question = iota // play another round? default yes
	AskBuyReward                  // pay for the trainer reward? default no
	AskMakeActive                 // make the new creature active? default no
)

func (q Question) String() string {
	switch q {
	case AskBuyReward:
		return "buy_reward"
	case AskMakeActive:
		return "make_active"
	default:
		return "continue"
	}
}

// Input is the player's side of a visit: move choices during battles,
// yes/no answers and which caught creatures to keep. An Input that also
// implements battle.Sink receives battle events as they happen.
type Input interface {
	battle.Chooser
	// Confirm answers q; def is the answer used when the player gives none.
	Confirm(q Question, def bool) bool
	// PickKeep returns 1-based indices into caught.
	PickKeep(caught []battle.CombatantSnapshot) []int
	// Insert returns yen to deposit when the balance is short of need.
	Insert(balance, need int64) int64
}

// Script is a pre-recorded Input. Move choices cycle through Moves; nil
// answers fall back to the prompt's default.
type Script struct {
	Moves      []int `json:"moves"`
	Continue   *bool `json:"continue"`
	Keep       []int `json:"keep"`
	KeepAll    bool  `json:"keep_all"`
	BuyReward  *bool `json:"buy_reward"`
	MakeActive *bool `json:"make_active"`
	InsertYen  int64 `json:"insert"`
	inserted   bool
}

// ChooseMove implements battle.Chooser.
func (s *Script) ChooseMove(_ *battle.Combatant, cycle int) int {
	if len(s.Moves) == 0 || cycle < 1 {
		return 1
	}
	return s.Moves[(cycle-1)%len(s.Moves)]
}

func (s *Script) Confirm(q Question, def bool) bool {
	var v *bool
	switch q {
	case AskContinue:
		v = s.Continue
	case AskBuyReward:
		v = s.BuyReward
	case AskMakeActive:
		v = s.MakeActive
	}
	if v == nil {
		return def
	}
	return *v
}

func (s *Script) PickKeep(caught []battle.CombatantSnapshot) []int {
	if s.KeepAll {
		out := make([]int, len(caught))
		for i := range caught {
			out[i] = i + 1
		}
		return out
	}
	return s.Keep
}

// Insert hands over InsertYen once per script.
func (s *Script) Insert(_, _ int64) int64 {
	if s.inserted || s.InsertYen <= 0 {
		return 0
	}
	s.inserted = true
	return s.InsertYen
}

// Bool returns a pointer to v for Script answers.
func Bool(v bool) *bool { return &v }
