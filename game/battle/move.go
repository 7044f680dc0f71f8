package battle

import (
	"math"
	"strings"

	"github.com/LeeIsaac1201/gaole/game/element"
)

// Move kinds.
const (
	MoveBasic MoveKind = iota
	MoveElemental
	MoveStruggle
)

// MoveKind tags the variant held by a Move.
type MoveKind int

// Move is a tagged union over the three attack variants. Element is only
// meaningful for MoveElemental.
type Move struct {
	Kind    MoveKind
	Element element.Element
}

// Tackle is the flat, type-agnostic attack.
func Tackle() Move { return Move{Kind: MoveBasic} }

// Strike is an elemental attack of the given element.
func Strike(e element.Element) Move { return Move{Kind: MoveElemental, Element: e} }

// Struggle is used in place of a move when the moveset is empty.
func Struggle() Move { return Move{Kind: MoveStruggle} }

// Name is the display name of the move.
func (m Move) Name() string {
	switch m.Kind {
	case MoveElemental:
		return m.Element.String() + " Strike"
	case MoveStruggle:
		return "Struggle"
	default:
		return "Tackle"
	}
}

// Source supplies randomness. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Hit is the outcome of one move execution.
type Hit struct {
	Move          Move
	Damage        int
	Recoil        int
	Effectiveness float64
	Verdict       element.Verdict
}

// variance draws the damage roll in [0.85, 1.0].
func variance(rng Source) float64 {
	return 0.85 + rng.Float64()*0.15
}

// Execute applies m from attacker to defender and reports what happened.
// Struggle does not consume a random draw.
func (m Move) Execute(attacker, defender *Combatant, rng Source) Hit {
	h := Hit{Move: m, Effectiveness: element.Neutral}
	switch m.Kind {
	case MoveElemental:
		atk := float64(max(1, attacker.Attack()))
		def := float64(max(0, defender.Defense()))
		h.Effectiveness = element.Effectiveness(m.Element, defender.PrimaryType())
		r := variance(rng)
		if h.Effectiveness > 0 {
			h.Damage = max(1, int(math.Floor((atk*1.5-def*0.5)*h.Effectiveness*r)))
		}
	case MoveStruggle:
		h.Damage = max(1, attacker.Attack()/4)
		h.Recoil = max(1, h.Damage/4)
	default:
		r := variance(rng)
		raw := (float64(attacker.Attack()) - float64(defender.Defense())*0.5) * r
		h.Damage = max(1, int(math.Round(raw)))
	}
	h.Verdict = element.Classify(h.Effectiveness)

	defender.TakeDamage(h.Damage)
	if h.Recoil > 0 {
		attacker.TakeDamage(h.Recoil)
	}
	return h
}

// MoveByName rebuilds a move from its display name. "Tackle" and any
// unrecognised name give Tackle; "<type> Strike" gives an elemental move.
func MoveByName(name string) Move {
	n := strings.ToLower(strings.TrimSpace(name))
	if strings.HasSuffix(n, " strike") {
		return Strike(element.Parse(strings.TrimSuffix(n, " strike")))
	}
	return Tackle()
}

// MovesByName converts a list of persisted move names, skipping blanks.
func MovesByName(names []string) []Move {
	out := make([]Move, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		out = append(out, MoveByName(n))
	}
	return out
}

// EnsureMoves gives a combatant with no moves Tackle plus a Strike of its
// primary type. Combatants without types only get Tackle.
func EnsureMoves(c *Combatant) {
	if len(c.moves) > 0 {
		return
	}
	c.AddMove(Tackle())
	if len(c.types) > 0 {
		c.AddMove(Strike(c.types[0]))
	}
}
