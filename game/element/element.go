// Package element holds the 18 elemental affinities and the fixed
// attack-versus-defense effectiveness chart used by battle moves.
package element

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Element is an elemental affinity. The zero value is Normal.
type Element int

const (
	Normal Element = iota
	Fire
	Water
	Electric
	Grass
	Ice
	Fighting
	Poison
	Ground
	Flying
	Psychic
	Bug
	Rock
	Ghost
	Dragon
	Dark
	Steel
	Fairy

	count
)

var keys = [count]string{
	"NORMAL", "FIRE", "WATER", "ELECTRIC", "GRASS", "ICE",
	"FIGHTING", "POISON", "GROUND", "FLYING", "PSYCHIC", "BUG",
	"ROCK", "GHOST", "DRAGON", "DARK", "STEEL", "FAIRY",
}

// synonyms maps short forms seen in catalog and save data.
var synonyms = map[string]Element{
	"ELEC":       Electric,
	"ELECTRICAL": Electric,
	"PSY":        Psychic,
	"FLY":        Flying,
}

// names is filled once; a cases.Caser keeps state and is not safe to share.
var names = titleNames()

func titleNames() [count]string {
	caser := cases.Title(language.English)
	var out [count]string
	for i, k := range keys {
		out[i] = caser.String(k)
	}
	return out
}

// All returns every element in chart order.
func All() []Element {
	out := make([]Element, count)
	for i := range out {
		out[i] = Element(i)
	}
	return out
}

// Valid reports whether e is one of the 18 known elements.
func (e Element) Valid() bool { return e >= 0 && e < count }

// String returns the title-cased display name, e.g. "Electric".
func (e Element) String() string {
	if !e.Valid() {
		return names[Normal]
	}
	return names[e]
}

// Key returns the upper-case identifier used in persisted data.
func (e Element) Key() string {
	if !e.Valid() {
		return keys[Normal]
	}
	return keys[e]
}

// Parse converts free-form text into an Element. It trims, treats
// underscores as spaces, collapses whitespace and ignores case.
// Unknown or empty input yields Normal.
func Parse(s string) Element {
	t := strings.ToUpper(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " "))
	if e, ok := synonyms[t]; ok {
		return e
	}
	for i, k := range keys {
		if k == t {
			return Element(i)
		}
	}
	return Normal
}

// ParseAll parses a list of names, dropping blank entries.
func ParseAll(in []string) []Element {
	out := make([]Element, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, Parse(s))
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (e Element) MarshalText() ([]byte, error) {
	return []byte(e.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It never fails.
func (e *Element) UnmarshalText(b []byte) error {
	*e = Parse(string(b))
	return nil
}
