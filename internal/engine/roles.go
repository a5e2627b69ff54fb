package engine

import (
	"github.com/DoyleJ11/mindless-backend/internal/themes"
)

// Assignment is the result of dealing a theme to a player list.
type Assignment struct {
	Theme string
	// Concepts is indexed like the player list; the mindless slot is empty.
	Concepts []string
	Players  []Player
}

// AssignRoles picks a theme, shuffles its concepts, makes one player mindless
// and deals the rest one concept each in player order.
func AssignRoles(players []Player, catalog themes.Catalog, rng Rand) (Assignment, error) {
	if len(players) < MinPlayers {
		return Assignment{}, ErrInsufficientPlayers
	}
	if len(catalog.Themes) == 0 {
		return Assignment{}, themes.ErrEmptyCatalog
	}

	theme := catalog.Themes[rng.Intn(len(catalog.Themes))]
	if len(theme.Concepts) < len(players)-1 {
		return Assignment{}, themes.ErrInvalidTheme
	}

	pool := make([]string, len(theme.Concepts))
	copy(pool, theme.Concepts)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	mindlessIdx := rng.Intn(len(players))

	out := Assignment{
		Theme:    theme.Name,
		Concepts: make([]string, len(players)),
		Players:  make([]Player, len(players)),
	}
	next := 0
	for i, p := range players {
		p.Words = nil
		p.Votes = 0
		if i == mindlessIdx {
			p.Role = RoleMindless
			p.Concept = ""
		} else {
			p.Role = RoleConcept
			p.Concept = pool[next]
			next++
		}
		out.Concepts[i] = p.Concept
		out.Players[i] = p
	}
	return out, nil
}
