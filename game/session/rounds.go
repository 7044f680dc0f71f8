package session

// RoundFunc plays round n of allowed. A battle round returns lost=true
// when the player's creature fainted.
type RoundFunc func(n, allowed int) (lost bool, err error)

// ContinueFunc is asked between rounds whether to keep playing.
type ContinueFunc func(n, allowed int) bool

// Entry reports one visit to a mode.
type Entry struct {
	Kind      Kind   `json:"-"`
	Mode      string `json:"mode"`
	Allowed   int    `json:"allowed"`
	Played    int    `json:"played"`
	Forfeited bool   `json:"forfeited"`
	State     State  `json:"state"`
}

// PlayRounds runs up to Allowance(k) rounds. Between rounds cont decides
// whether to go on. A lost battle round forfeits the session; otherwise
// the rounds played are consumed. If play fails the rounds already
// played are still consumed and the error is returned with the entry.
func (m *Machine) PlayRounds(k Kind, play RoundFunc, cont ContinueFunc) (Entry, error) {
	e := Entry{Kind: k, Mode: k.String()}
	if !m.Active() {
		e.State = m.Snapshot()
		return e, ErrInactive
	}
	e.Allowed = m.Allowance(k)
	if e.Allowed <= 0 {
		e.State = m.Snapshot()
		return e, ErrNoRounds
	}

	var err error
	for n := 1; n <= e.Allowed; n++ {
		var lost bool
		lost, err = play(n, e.Allowed)
		if err != nil {
			break
		}
		e.Played++
		if lost && k == Battle {
			e.Forfeited = true
			m.Forfeit()
			break
		}
		if n < e.Allowed && cont != nil && !cont(n, e.Allowed) {
			break
		}
	}
	if !e.Forfeited {
		m.Consume(k, e.Played)
	}
	e.State = m.Snapshot()
	return e, err
}
