package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/reelview/backend/internal/models"
)

type countingProvider struct {
	searches int
	genres   int
}

func (p *countingProvider) SearchTitles(_ context.Context, query, kind string) ([]SearchResult, error) {
	p.searches++
	return []SearchResult{{ID: 1, Name: query, MovieOrTV: kind}}, nil
}

func (p *countingProvider) ListGenres(_ context.Context) ([]models.Genre, error) {
	p.genres++
	return []models.Genre{{ID: 18, Name: "Drama"}}, nil
}

func TestCachingProviderSearchTitles(t *testing.T) {
	base := &countingProvider{}
	provider := NewCachingProvider(base, time.Minute)

	for i := 0; i < 3; i++ {
		results, err := provider.SearchTitles(context.Background(), "dune", models.KindMovie)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].Name != "dune" {
			t.Fatalf("unexpected results %+v", results)
		}
	}

	if base.searches != 1 {
		t.Fatalf("expected one upstream search, got %d", base.searches)
	}

	// A different kind is a different cache key.
	if _, err := provider.SearchTitles(context.Background(), "dune", models.KindTV); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.searches != 2 {
		t.Fatalf("expected second upstream search, got %d", base.searches)
	}
}

func TestCachingProviderListGenres(t *testing.T) {
	base := &countingProvider{}
	provider := NewCachingProvider(base, time.Minute)

	for i := 0; i < 3; i++ {
		genres, err := provider.ListGenres(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(genres) != 1 {
			t.Fatalf("unexpected genres %+v", genres)
		}
	}

	if base.genres != 1 {
		t.Fatalf("expected one upstream genre fetch, got %d", base.genres)
	}
}

func TestCachingProviderNilBase(t *testing.T) {
	var provider *CachingProvider

	if _, err := provider.SearchTitles(context.Background(), "dune", models.KindMovie); err != ErrProviderUnavailable {
		t.Fatalf("expected ErrProviderUnavailable got %v", err)
	}
}
