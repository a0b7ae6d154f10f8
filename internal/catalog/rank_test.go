package catalog

import (
	"testing"

	"github.com/reelview/backend/internal/models"
)

func TestMatchScore(t *testing.T) {
	cases := []struct {
		name string
		term string
		want int
	}{
		{"Dune", "dune", 6},
		{"Dune: Part Two", "dune", 4},
		{"The Dune Chronicles", "dune", 1},
		{"Arrival at Dune", "dune", 2},
		{"Arrival", "dune", 0},
	}

	for _, tc := range cases {
		if got := MatchScore(tc.name, tc.term); got != tc.want {
			t.Fatalf("MatchScore(%q, %q) = %d want %d", tc.name, tc.term, got, tc.want)
		}
	}
}

func TestRankTitlesDescending(t *testing.T) {
	titles := []models.Title{
		{ID: 1, Name: "Arrival"},
		{ID: 2, Name: "The Dune Chronicles"},
		{ID: 3, Name: "Dune"},
		{ID: 4, Name: "Dune: Part Two"},
	}

	RankTitles(titles, "dune", true)

	wantOrder := []int{3, 4, 2, 1}
	for i, want := range wantOrder {
		if titles[i].ID != want {
			t.Fatalf("position %d: got title %d want %d", i, titles[i].ID, want)
		}
	}
}

func TestRankTitlesStableOnTies(t *testing.T) {
	titles := []models.Title{
		{ID: 1, Name: "Blade Runner"},
		{ID: 2, Name: "Alien"},
		{ID: 3, Name: "Gattaca"},
	}

	RankTitles(titles, "dune", true)

	for i, want := range []int{1, 2, 3} {
		if titles[i].ID != want {
			t.Fatalf("tied titles reordered: got %d at %d", titles[i].ID, i)
		}
	}
}
