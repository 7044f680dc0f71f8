package resource

// builtin keeps wild encounters possible without a catalog file.
var builtin = []Species{
	{ID: 25, Name: "Pikachu", Types: []string{"Electric"}, MaxHP: 35, Attack: 55, Defense: 40},
	{ID: 16, Name: "Pidgey", Types: []string{"Normal", "Flying"}, MaxHP: 30, Attack: 30, Defense: 25},
	{ID: 19, Name: "Rattata", Types: []string{"Normal"}, MaxHP: 28, Attack: 34, Defense: 20},
	{ID: 1, Name: "Bulbasaur", Types: []string{"Grass", "Poison"}, MaxHP: 45, Attack: 49, Defense: 49},
	{ID: 4, Name: "Charmander", Types: []string{"Fire"}, MaxHP: 39, Attack: 52, Defense: 43},
	{ID: 7, Name: "Squirtle", Types: []string{"Water"}, MaxHP: 44, Attack: 48, Defense: 65},
}
