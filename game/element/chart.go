package element

// Multipliers used by the chart.
const (
	Immune  = 0.0
	Weak    = 0.5
	Neutral = 1.0
	Strong  = 2.0
)

type chart [count][count]float64

// table is built once and only read afterwards.
var table = buildChart()

// Effectiveness returns the damage multiplier for an attack of element
// atk landing on a defender whose primary element is def. Out-of-range
// values are treated as neutral.
func Effectiveness(atk, def Element) float64 {
	if !atk.Valid() || !def.Valid() {
		return Neutral
	}
	return table[atk][def]
}

func buildChart() chart {
	var c chart
	for a := range c {
		for d := range c[a] {
			c[a][d] = Neutral
		}
	}
	set := func(atk Element, mult float64, defs ...Element) {
		for _, d := range defs {
			c[atk][d] = mult
		}
	}

	set(Normal, Weak, Rock, Steel)
	set(Normal, Immune, Ghost)

	set(Fire, Strong, Grass, Ice, Bug, Steel)
	set(Fire, Weak, Fire, Water, Rock, Dragon)

	set(Water, Strong, Fire, Ground, Rock)
	set(Water, Weak, Water, Grass, Dragon)

	set(Electric, Strong, Water, Flying)
	set(Electric, Weak, Electric, Grass, Dragon)
	set(Electric, Immune, Ground)

	set(Grass, Strong, Water, Ground, Rock)
	set(Grass, Weak, Fire, Grass, Poison, Flying, Bug, Dragon, Steel)

	set(Ice, Strong, Grass, Ground, Flying, Dragon)
	set(Ice, Weak, Fire, Water, Ice, Steel)

	set(Fighting, Strong, Normal, Ice, Rock, Dark, Steel)
	set(Fighting, Weak, Poison, Flying, Psychic, Bug, Fairy)
	set(Fighting, Immune, Ghost)

	set(Poison, Strong, Grass, Fairy)
	set(Poison, Weak, Poison, Ground, Rock, Ghost)
	set(Poison, Immune, Steel)

	set(Ground, Strong, Fire, Electric, Poison, Rock, Steel)
	set(Ground, Weak, Grass, Bug)
	set(Ground, Immune, Flying)

	set(Flying, Strong, Fighting, Bug, Grass)
	set(Flying, Weak, Electric, Rock, Steel)

	set(Psychic, Strong, Fighting, Poison)
	set(Psychic, Weak, Psychic, Steel)
	set(Psychic, Immune, Dark)

	set(Bug, Strong, Grass, Psychic, Dark)
	set(Bug, Weak, Fire, Fighting, Poison, Flying, Ghost, Steel, Fairy)

	set(Rock, Strong, Fire, Ice, Flying, Bug)
	set(Rock, Weak, Fighting, Ground, Steel)

	set(Ghost, Strong, Ghost, Psychic)
	set(Ghost, Weak, Dark)
	set(Ghost, Immune, Normal, Fighting)

	set(Dragon, Strong, Dragon)
	set(Dragon, Weak, Steel)
	set(Dragon, Immune, Fairy)

	set(Dark, Strong, Psychic, Ghost)
	set(Dark, Weak, Fighting, Dark, Fairy)

	set(Steel, Strong, Ice, Rock, Fairy)
	set(Steel, Weak, Fire, Water, Electric, Steel)

	set(Fairy, Strong, Fighting, Dragon, Dark)
	set(Fairy, Weak, Fire, Poison, Steel)

	return c
}

// Verdict classifies a multiplier for narration.
type Verdict int

const (
	VerdictNeutral Verdict = iota
	VerdictNoEffect
	VerdictNotVeryEffective
	VerdictSuperEffective
)

// Classify maps a multiplier to its verdict.
func Classify(mult float64) Verdict {
	switch {
	case mult <= 0:
		return VerdictNoEffect
	case mult > 1:
		return VerdictSuperEffective
	case mult < 1:
		return VerdictNotVeryEffective
	default:
		return VerdictNeutral
	}
}

// Message returns the narration line for the verdict, or "" when neutral.
func (v Verdict) Message() string {
	switch v {
	case VerdictNoEffect:
		return "It has no effect."
	case VerdictSuperEffective:
		return "It is super effective."
	case VerdictNotVeryEffective:
		return "It is not very effective."
	}
	return ""
}
