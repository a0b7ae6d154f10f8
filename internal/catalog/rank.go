package catalog

import (
	"sort"
	"strings"

	"github.com/reelview/backend/internal/models"
)

// MatchScore grades how closely a title name matches a search term. Exact and
// prefix matches are worth two points each, substring and suffix matches one
// point each, all counted independently on the lowercased values.
func MatchScore(name, term string) int {
	name = strings.ToLower(name)
	term = strings.ToLower(term)

	score := 0
	if name == term {
		score += 2
	}
	if strings.HasPrefix(name, term) {
		score += 2
	}
	if strings.Contains(name, term) {
		score++
	}
	if strings.HasSuffix(name, term) {
		score++
	}
	return score
}

// RankTitles orders titles by match score against the term. The sort is
// stable, so equal scores keep their incoming order. Ascending by default,
// descending when desc is set.
func RankTitles(titles []models.Title, term string, desc bool) {
	sort.SliceStable(titles, func(i, j int) bool {
		si, sj := MatchScore(titles[i].Name, term), MatchScore(titles[j].Name, term)
		if desc {
			return si > sj
		}
		return si < sj
	})
}
