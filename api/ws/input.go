package ws

import (
	"encoding/json"
	"time"

	"github.com/LeeIsaac1201/gaole/game/arcade"
	"github.com/LeeIsaac1201/gaole/game/battle"
)

// prompt asks the client for one answer. The client responds with a
// "reply" packet carrying {"value": ...}.
type prompt struct {
	Kind     string                     `json:"kind"` // move | confirm | keep | insert
	Question string                     `json:"question,omitempty"`
	Default  *bool                      `json:"default,omitempty"`
	Cycle    int                        `json:"cycle,omitempty"`
	Moves    []string                   `json:"moves,omitempty"`
	Caught   []battle.CombatantSnapshot `json:"caught,omitempty"`
	Balance  int64                      `json:"balance,omitempty"`
	Need     int64                      `json:"need,omitempty"`
}

type reply struct {
	Value json.RawMessage `json:"value"`
}

type eventPayload struct {
	Event string       `json:"event"`
	Text  string       `json:"text"`
	Data  battle.Event `json:"data"`
}

// remoteInput answers arcade prompts by asking the client. A prompt
// left unanswered for timeout takes its default; once the connection
// closes every question is declined so play winds down.
type remoteInput struct {
	conn    *Conn
	timeout time.Duration
}

var _ arcade.Input = (*remoteInput)(nil)
var _ battle.Sink = (*remoteInput)(nil)

// ask sends p and decodes the answer into v. It reports false when no
// usable answer arrived.
func (in *remoteInput) ask(p prompt, v interface{}) bool {
	if in.conn.IsClosed() {
		return false
	}
	in.conn.drainReplies()
	in.conn.waiting.Store(true)
	defer in.conn.waiting.Store(false)
	in.conn.Send("prompt", p)

	timer := time.NewTimer(in.timeout)
	defer timer.Stop()
	select {
	case raw := <-in.conn.replies:
		var r reply
		if err := json.Unmarshal(raw, &r); err != nil || len(r.Value) == 0 {
			return false
		}
		return json.Unmarshal(r.Value, v) == nil
	case <-timer.C:
		return false
	case <-in.conn.done:
		return false
	}
}

func (in *remoteInput) ChooseMove(self *battle.Combatant, cycle int) int {
	moves := self.Moves()
	names := make([]string, len(moves))
	for i, m := range moves {
		names[i] = m.Name()
	}
	choice := 1
	in.ask(prompt{Kind: "move", Cycle: cycle, Moves: names}, &choice)
	return choice
}

func (in *remoteInput) Confirm(q arcade.Question, def bool) bool {
	if in.conn.IsClosed() {
		return false
	}
	answer := def
	if !in.ask(prompt{Kind: "confirm", Question: q.String(), Default: &def}, &answer) {
		return def
	}
	return answer
}

func (in *remoteInput) PickKeep(caught []battle.CombatantSnapshot) []int {
	var keep []int
	if !in.ask(prompt{Kind: "keep", Caught: caught}, &keep) {
		return nil
	}
	return keep
}

func (in *remoteInput) Insert(balance, need int64) int64 {
	var amount int64
	if !in.ask(prompt{Kind: "insert", Balance: balance, Need: need}, &amount) || amount < 0 {
		return 0
	}
	return amount
}

// Emit streams battle narration as it happens.
func (in *remoteInput) Emit(e battle.Event) {
	in.conn.Send("event", eventPayload{Event: e.EventType(), Text: e.Text(), Data: e})
}
