package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
	"github.com/sahilm/fuzzy"
)

// SearchService resolves player-typed hero references. Exact name matches win;
// otherwise a fuzzy match over name and species ranks candidates.
type SearchService struct {
	heroes repositories.HeroRepository
}

func NewSearchService(heroes repositories.HeroRepository) *SearchService {
	return &SearchService{heroes: heroes}
}

// heroCorpus adapts a hero list to fuzzy.Source.
type heroCorpus []*models.Hero

func (c heroCorpus) String(i int) string {
	return c[i].Name + " " + c[i].Species
}

func (c heroCorpus) Len() int {
	return len(c)
}

// Search returns the user's heroes ranked by fuzzy relevance to the query.
// An empty query returns the full roster in repository order.
func (s *SearchService) Search(ctx context.Context, userID, query string) ([]*models.Hero, error) {
	heroes, err := s.heroes.GetAllByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return heroes, nil
	}

	matches := fuzzy.FindFrom(query, heroCorpus(heroes))
	ranked := make([]*models.Hero, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, heroes[m.Index])
	}
	return ranked, nil
}

// Resolve finds exactly one hero for a player-typed reference, preferring an
// exact case-insensitive name match over the best fuzzy hit.
func (s *SearchService) Resolve(ctx context.Context, userID, query string) (*models.Hero, error) {
	heroes, err := s.heroes.GetAllByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, h := range heroes {
		if strings.EqualFold(h.Name, query) {
			return h, nil
		}
	}

	matches := fuzzy.FindFrom(query, heroCorpus(heroes))
	if len(matches) == 0 {
		return nil, fmt.Errorf("no hero matches %q", query)
	}
	return heroes[matches[0].Index], nil
}
