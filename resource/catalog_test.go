package resource

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/LeeIsaac1201/gaole/game/battle"
	"github.com/LeeIsaac1201/gaole/game/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCatalog = `[
  {"disk_number": "#025", "name": "Pikachu", "types": ["Electric"], "health_points": 35,
   "attack": 55, "defense": 40, "move": ["Electric Strike"], "grade": 3, "energy": "2", "speed": 90},
  {"disk_number": 4, "name": "Charmander", "types": "Fire", "health_points": "39 HP",
   "attack": 0, "special_attack": 60, "defense": 43},
  {"name": "Missing disk number", "health_points": 10},
  {"disk_number": "promo", "name": "Mew", "types": ["psy"], "health_points": 100, "attack": 100, "defense": 100},
  "garbage"
]`

func TestParseCatalog_Lenient(t *testing.T) {
	species, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, species, 3)

	pika := species[0]
	assert.Equal(t, 25, pika.ID)
	assert.Equal(t, []string{"Electric"}, pika.Types)
	assert.Equal(t, []string{"Electric Strike"}, pika.Moves)
	assert.Equal(t, 2, pika.Energy)
	assert.Equal(t, 90, pika.Speed)

	char := species[1]
	assert.Equal(t, 4, char.ID)
	assert.Equal(t, []string{"Fire"}, char.Types)
	assert.Equal(t, 39, char.MaxHP)

	assert.Equal(t, 1, species[2].ID, "id without digits gets an auto id")
}

func TestParseCatalog_WrappedObject(t *testing.T) {
	species, err := ParseCatalog([]byte(`{"version": 2, "pokemon": [{"disk_number": "7", "name": "Squirtle"}]}`))
	require.NoError(t, err)
	require.Len(t, species, 1)
	assert.Equal(t, "Squirtle", species[0].Name)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte(`{not json`))
	assert.Error(t, err)

	species, err := ParseCatalog([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, species)
}

func TestSpecies_Combatant(t *testing.T) {
	species, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	c := species[1].Combatant()
	assert.Equal(t, 60, c.Attack(), "zero attack falls back to special attack")
	assert.Equal(t, 43, c.Defense())
	assert.Equal(t, element.Fire, c.PrimaryType())
	assert.Equal(t, 39, c.HP())
	assert.Empty(t, c.Moves())

	p := species[0].Combatant()
	assert.Equal(t, []battle.Move{battle.Strike(element.Electric)}, p.Moves())

	m := species[2].Combatant()
	assert.Equal(t, element.Psychic, m.PrimaryType())
}

func TestLoadCatalog_MissingFileUsesBuiltin(t *testing.T) {
	c := LoadCatalog(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
	assert.True(t, c.Fallback())
	assert.Equal(t, 6, c.Len())

	s, ok := c.ByID(25)
	require.True(t, ok)
	assert.Equal(t, "Pikachu", s.Name)
	_, ok = c.ByID(151)
	assert.False(t, ok)
}

func TestLoadCatalog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "species.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0644))

	c := LoadCatalog(path, nil)
	assert.False(t, c.Fallback())
	assert.Equal(t, 3, c.Len())
}

func TestLoadCatalog_EmptyOrBrokenFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0644))
	assert.True(t, LoadCatalog(empty, nil).Fallback())

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("[{"), 0644))
	assert.True(t, LoadCatalog(broken, nil).Fallback())

	assert.True(t, LoadCatalog("", nil).Fallback())
}

func TestCatalog_Random(t *testing.T) {
	c := NewCatalog(nil, nil)
	rng := rand.New(rand.NewSource(42))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seen[c.Random(rng).ID] = true
	}
	assert.Len(t, seen, 6)
}

func TestCatalog_AllIsCopy(t *testing.T) {
	c := NewCatalog(nil, nil)
	all := c.All()
	all[0].Name = "Changed"
	s, _ := c.ByID(25)
	assert.Equal(t, "Pikachu", s.Name)
}
