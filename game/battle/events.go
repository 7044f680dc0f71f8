package battle

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Event is emitted by the Engine for display. Nothing in the engine
// depends on how events are consumed.
type Event interface {
	EventType() string
	Text() string
}

// Sink receives battle events.
type Sink interface {
	Emit(e Event)
}

// Side identifies which combatant an event refers to.
type Side string

const (
	SidePlayer   Side = "player"
	SideOpponent Side = "opponent"
)

// --- Concrete event types ---

type EventBattleStart struct {
	Player   CombatantSnapshot `json:"player"`
	Opponent CombatantSnapshot `json:"opponent"`
}

func (EventBattleStart) EventType() string { return "battle_start" }
func (e EventBattleStart) Text() string {
	return fmt.Sprintf("%s vs %s!", e.Player.Name, e.Opponent.Name)
}

type EventMoveUsed struct {
	Actor         Side    `json:"actor"`
	ActorName     string  `json:"actor_name"`
	TargetName    string  `json:"target_name"`
	Move          string  `json:"move"`
	Damage        int     `json:"damage"`
	Recoil        int     `json:"recoil,omitempty"`
	Effectiveness float64 `json:"effectiveness"`
	Fallback      bool    `json:"fallback,omitempty"` // invalid choice replaced by the first move
	TargetHP      int     `json:"target_hp"`
	ActorHP       int     `json:"actor_hp"`
	Verdict       string  `json:"verdict,omitempty"`
}

func (EventMoveUsed) EventType() string { return "move_used" }
func (e EventMoveUsed) Text() string {
	var b strings.Builder
	if e.Fallback {
		b.WriteString("Invalid move selection! Using first available move... ")
	}
	fmt.Fprintf(&b, "%s used %s!", e.ActorName, e.Move)
	if e.Verdict != "" {
		b.WriteString(" " + e.Verdict)
	}
	if e.Damage > 0 {
		fmt.Fprintf(&b, " %s took %d damage.", e.TargetName, e.Damage)
	} else {
		fmt.Fprintf(&b, " %s took no damage.", e.TargetName)
	}
	if e.Recoil > 0 {
		fmt.Fprintf(&b, " %s is hurt by recoil!", e.ActorName)
	}
	return b.String()
}

type EventStatus struct {
	Cycle      int    `json:"cycle"`
	PlayerName string `json:"player_name"`
	PlayerHP   int    `json:"player_hp"`
	PlayerMax  int    `json:"player_max"`
	OppName    string `json:"opponent_name"`
	OppHP      int    `json:"opponent_hp"`
	OppMax     int    `json:"opponent_max"`
}

func (EventStatus) EventType() string { return "status" }
func (e EventStatus) Text() string {
	return fmt.Sprintf("%s: %d/%d HP | %s: %d/%d HP",
		e.PlayerName, e.PlayerHP, e.PlayerMax, e.OppName, e.OppHP, e.OppMax)
}

type EventBattleEnd struct {
	Outcome   Outcome `json:"outcome"`
	Cycles    int     `json:"cycles"`
	Loser     string  `json:"loser"`
	Stalemate bool    `json:"stalemate,omitempty"`
}

func (EventBattleEnd) EventType() string { return "battle_end" }
func (e EventBattleEnd) Text() string {
	prefix := ""
	if e.Stalemate {
		prefix = "Neither side can land a blow. "
	}
	if e.Outcome == PlayerWon {
		return prefix + e.Loser + " fainted! You won the battle!"
	}
	return prefix + e.Loser + " fainted! You lost the battle..."
}

// --- Sinks ---

type discard struct{}

func (discard) Emit(Event) {}

// Recorder keeps every event in order.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// Lines returns the narration text of the recorded events.
func (r *Recorder) Lines() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Text()
	}
	return out
}

// Count returns how many recorded events have the given type.
func (r *Recorder) Count(eventType string) int {
	n := 0
	for _, e := range r.Events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// LogSink narrates events through a zap logger at debug level.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Emit(e Event) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug(e.Text(), zap.String("event", e.EventType()))
}

// Tee fans events out to several sinks.
type Tee []Sink

func (t Tee) Emit(e Event) {
	for _, s := range t {
		if s != nil {
			s.Emit(e)
		}
	}
}
