package analysis

import (
	"strings"

	"golang.org/x/text/cases"
)

// Category is a coarse genre family
type Category string

const (
	Heavy       Category = "Heavy"
	Electronic  Category = "Electronic"
	HipHop      Category = "Hip-Hop"
	RnBSoul     Category = "R&B/Soul"
	Rock        Category = "Rock"
	Jazz        Category = "Jazz"
	Pop         Category = "Pop"
	Country     Category = "Country"
	Alternative Category = "Alternative"
	Other       Category = "Other"
)

// categoryKeywords is evaluated top to bottom; the first category with a
// matching keyword wins
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{Heavy, []string{"metal", "punk", "hardcore"}},
	{Electronic, []string{"electro", "electronic", "dance", "edm", "house", "techno"}},
	{HipHop, []string{"rap", "hip hop", "hip-hop", "screwed"}},
	{RnBSoul, []string{"r&b", "soul", "funk"}},
	{Rock, []string{"rock", "indie"}},
	{Jazz, []string{"jazz"}},
	{Pop, []string{"pop"}},
	{Country, []string{"country"}},
	{Alternative, []string{"alternative"}},
}

// Categories lists every category in priority order, Other last
func Categories() []Category {
	out := make([]Category, 0, len(categoryKeywords)+1)
	for _, ck := range categoryKeywords {
		out = append(out, ck.category)
	}
	return append(out, Other)
}

// CategorizeGenre maps a raw genre string to its category by
// case-insensitive substring match
func CategorizeGenre(genre string) Category {
	// Casers carry state, so each call folds with its own
	folded := cases.Fold().String(genre)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(folded, kw) {
				return ck.category
			}
		}
	}
	return Other
}
