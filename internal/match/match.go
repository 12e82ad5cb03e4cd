// Package match scores catalog candidates against a source track and selects the one to use.
//
// [Score] sums four independent components:
//
//	name           exact 40, containment 20
//	primary artist exact 35, containment 17
//	duration       within 5s 15, within 15s 7
//	album          exact 10, containment 5
//
// String comparisons ignore case and surrounding whitespace. An empty string is contained in every string,
// so a missing album still earns containment credit. A track scored against itself is always 100.
package match

import (
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/plx/internal/models"
)

const (
	nameExact      = 40
	nameContains   = 20
	artistExact    = 35
	artistContains = 17
	durationClose  = 15
	durationNear   = 7
	albumExact     = 10
	albumContains  = 5

	closeWindowMs = 5000
	nearWindowMs  = 15000

	// MaxScore is the score of a perfect match.
	MaxScore = nameExact + artistExact + durationClose + albumExact
)

// Breakdown holds the component scores of a comparison.
type Breakdown struct {
	Name     int `json:"name"`
	Artist   int `json:"artist"`
	Duration int `json:"duration"`
	Album    int `json:"album"`
}

// Total sums the components.
func (b Breakdown) Total() int {
	return b.Name + b.Artist + b.Duration + b.Album
}

// Score returns the similarity of candidate to target in [0, 100].
func Score(candidate, target models.Track) int {
	return Explain(candidate, target).Total()
}

// Explain returns the per-component scores behind [Score].
func Explain(candidate, target models.Track) Breakdown {
	return Breakdown{
		Name:     textScore(candidate.Name, target.Name, nameExact, nameContains),
		Artist:   textScore(candidate.PrimaryArtist(), target.PrimaryArtist(), artistExact, artistContains),
		Duration: durationScore(candidate.DurationMs, target.DurationMs),
		Album:    textScore(candidate.Album, target.Album, albumExact, albumContains),
	}
}

func textScore(a, b string, exact, contains int) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	switch {
	case a == b:
		return exact
	case strings.Contains(a, b) || strings.Contains(b, a):
		return contains
	default:
		return 0
	}
}

func durationScore(a, b int) int {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < closeWindowMs:
		return durationClose
	case diff < nearWindowMs:
		return durationNear
	default:
		return 0
	}
}

// Candidate is a search result with its score.
type Candidate struct {
	Track models.Track `json:"track"`
	Score int          `json:"score"`
}

// Rank scores every candidate against target, highest first. Ties keep catalog order.
func Rank(target models.Track, candidates []models.Track) []Candidate {
	ranked := make([]Candidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = Candidate{Track: c, Score: Score(c, target)}
	}
	slices.SortStableFunc(ranked, func(a, b Candidate) int { return b.Score - a.Score })
	return ranked
}

// Selector picks the candidate to add for a source track.
type Selector interface {
	// Select returns the chosen candidate and its score, or false when no candidate is acceptable.
	Select(target models.Track, candidates []models.Track) (models.Track, int, bool)
	Name() string
}

// FirstResult accepts the catalog's first result unconditionally.
type FirstResult struct{}

func (FirstResult) Select(target models.Track, candidates []models.Track) (models.Track, int, bool) {
	if len(candidates) == 0 {
		return models.Track{}, 0, false
	}
	return candidates[0], Score(candidates[0], target), true
}

func (FirstResult) Name() string { return StrategyFirst }

// BestScore ranks candidates by [Score] and rejects the best one when it scores below MinScore.
type BestScore struct {
	MinScore int
}

func (s BestScore) Select(target models.Track, candidates []models.Track) (models.Track, int, bool) {
	ranked := Rank(target, candidates)
	if len(ranked) == 0 || ranked[0].Score < s.MinScore {
		return models.Track{}, 0, false
	}
	return ranked[0].Track, ranked[0].Score, true
}

func (s BestScore) Name() string { return StrategyScore }

const (
	StrategyFirst = "first"
	StrategyScore = "score"
)

// NewSelector builds a [Selector] from its configuration name. An empty strategy means [FirstResult].
func NewSelector(strategy string, minScore int) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyFirst:
		return FirstResult{}, nil
	case StrategyScore:
		if minScore < 0 || minScore > MaxScore {
			return nil, fmt.Errorf("minimum score %d out of range [0, %d]", minScore, MaxScore)
		}
		return BestScore{MinScore: minScore}, nil
	default:
		return nil, fmt.Errorf("unknown matching strategy %q", strategy)
	}
}
