package testevents

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/logger"
)

// seasonLabel formats the season starting in year as "2122".
func seasonLabel(year int) string {
	return fmt.Sprintf("%02d%02d", year%100, (year+1)%100)
}

// poisson draws from a Poisson distribution (Knuth).
func poisson(r *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := r.Float64()
	for p > limit {
		k++
		p *= r.Float64()
	}
	return k
}

// schedule returns a double round robin by the circle method. Each round
// lists home/away index pairs; the second half mirrors the first.
func schedule(n int) [][][2]int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	var first [][][2]int
	for round := 0; round < n-1; round++ {
		pairs := make([][2]int, 0, n/2)
		for i := 0; i < n/2; i++ {
			a, b := idx[i], idx[n-1-i]
			if (round+i)%2 == 1 {
				a, b = b, a
			}
			pairs = append(pairs, [2]int{a, b})
		}
		first = append(first, pairs)
		// rotate all but the first slot
		last := idx[n-1]
		copy(idx[2:], idx[1:n-1])
		idx[1] = last
	}
	out := make([][][2]int, 0, 2*len(first))
	out = append(out, first...)
	for _, round := range first {
		mirrored := make([][2]int, len(round))
		for i, p := range round {
			mirrored[i] = [2]int{p[1], p[0]}
		}
		out = append(out, mirrored)
	}
	return out
}

// prices converts outcome probabilities into bookmaker odds carrying margin.
func prices(pHome, pDraw, pAway, margin float64) [3]float64 {
	price := func(p float64) float64 {
		o := 1 / (p * (1 + margin))
		return math.Max(minPrice, math.Round(o*100)/100)
	}
	return [3]float64{price(pHome), price(pDraw), price(pAway)}
}

// probabilities maps the strength gap to home/draw/away probabilities.
func probabilities(home, away float64) (float64, float64, float64) {
	pHomeNoDraw := 1 / (1 + math.Exp(-(home-away+homeAdvantage)*2))
	pHome := (1 - drawShare) * pHomeNoDraw
	pAway := (1 - drawShare) * (1 - pHomeNoDraw)
	return pHome, drawShare, pAway
}

type team struct {
	name     string
	strength float64
}

// GenerateMatches plays every configured season of every division.
func GenerateMatches(ctx context.Context, config *Config, stats *Stats) ([]Match, error) {
	if config.Teams < 2 {
		return nil, fmt.Errorf("need at least 2 teams, got %d", config.Teams)
	}
	if config.Seasons < 1 {
		return nil, fmt.Errorf("need at least 1 season, got %d", config.Seasons)
	}
	if config.Relegated < 0 || config.Relegated >= config.Teams {
		return nil, fmt.Errorf("relegated must be in [0, %d), got %d", config.Teams, config.Relegated)
	}
	n := config.Teams
	if n%2 == 1 {
		n++
	}

	r := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15))
	rounds := schedule(n)

	var matches []Match
	for _, division := range config.Divisions {
		next := 0
		newTeam := func() team {
			next++
			return team{
				name:     model.NormalizeTeam(division + " team " + strconv.Itoa(next)),
				strength: r.NormFloat64() * strengthScale,
			}
		}
		teams := make([]team, n)
		for i := range teams {
			teams[i] = newTeam()
		}
		stats.Teams += n

		for s := 0; s < config.Seasons; s++ {
			year := config.FirstSeason + s
			season := seasonLabel(year)
			start := time.Date(year, seasonStartMonth, seasonStartDay, 0, 0, 0, 0, time.UTC)
			points := make([]int, n)

			for ri, round := range rounds {
				date := start.Add(time.Duration(ri) * roundInterval)
				for _, pair := range round {
					h, a := teams[pair[0]], teams[pair[1]]
					lh := baseGoalRate * math.Exp((h.strength-a.strength)/2+homeAdvantage/2)
					la := baseGoalRate * math.Exp((a.strength-h.strength)/2-homeAdvantage/2)
					m := Match{
						Division:  division,
						Season:    season,
						Date:      date,
						HomeTeam:  h.name,
						AwayTeam:  a.name,
						HomeGoals: poisson(r, lh),
						AwayGoals: poisson(r, la),
						Odds:      make(map[string][3]float64, len(config.Books)),
					}
					m.HomeShots = m.HomeGoals + poisson(r, baseShots+shotsPerGoal*lh)
					m.AwayShots = m.AwayGoals + poisson(r, baseShots+shotsPerGoal*la)

					for bi, book := range config.Books {
						// each book misjudges the gap a little differently
						noise := r.NormFloat64() * 0.1 * float64(bi+1)
						qH, qD, qA := probabilities(h.strength+noise, a.strength)
						m.Odds[book] = prices(qH, qD, qA, config.Margin)
					}

					switch {
					case m.HomeGoals > m.AwayGoals:
						points[pair[0]] += 3
						stats.HomeWins++
					case m.HomeGoals < m.AwayGoals:
						points[pair[1]] += 3
						stats.AwayWins++
					default:
						points[pair[0]]++
						points[pair[1]]++
						stats.Draws++
					}
					matches = append(matches, m)
				}
			}

			if s == config.Seasons-1 {
				break
			}
			// relegate the bottom of the table, ties by name
			order := make([]int, n)
			for i := range order {
				order[i] = i
			}
			sort.SliceStable(order, func(i, j int) bool {
				if points[order[i]] != points[order[j]] {
					return points[order[i]] < points[order[j]]
				}
				return teams[order[i]].name < teams[order[j]].name
			})
			for _, i := range order[:config.Relegated] {
				teams[i] = newTeam()
				stats.Newcomers++
			}
		}

		if config.Verbose {
			logger.Get().Debug(ctx, "division generated",
				logger.String("division", division),
				logger.Int("teamsCreated", next))
		}
	}

	stats.Matches = len(matches)
	return matches, nil
}

// Events flattens matches into the long event layout: goals, shots and
// every book's home/draw/away price.
func Events(matches []Match) []model.Event {
	out := make([]model.Event, 0, len(matches)*10)
	for _, m := range matches {
		emit := func(field, value string) {
			out = append(out, model.Event{
				Division: m.Division,
				Season:   m.Season,
				Date:     m.Date,
				HomeTeam: m.HomeTeam,
				AwayTeam: m.AwayTeam,
				Field:    field,
				Value:    value,
			})
		}
		emit(ColHomeGoals, strconv.Itoa(m.HomeGoals))
		emit(ColAwayGoals, strconv.Itoa(m.AwayGoals))
		emit(ColHomeShots, strconv.Itoa(m.HomeShots))
		emit(ColAwayShots, strconv.Itoa(m.AwayShots))

		books := make([]string, 0, len(m.Odds))
		for b := range m.Odds {
			books = append(books, b)
		}
		sort.Strings(books)
		for _, b := range books {
			o := m.Odds[b]
			emit(b+"H", strconv.FormatFloat(o[0], 'f', 2, 64))
			emit(b+"D", strconv.FormatFloat(o[1], 'f', 2, 64))
			emit(b+"A", strconv.FormatFloat(o[2], 'f', 2, 64))
		}
	}
	return out
}

// Generate plays the configured league and returns its events.
func Generate(ctx context.Context, config *Config, stats *Stats) ([]model.Event, error) {
	logger.Get().Info(ctx, "generating synthetic league",
		logger.Any("divisions", config.Divisions),
		logger.Int("teams", config.Teams),
		logger.Int("seasons", config.Seasons),
		logger.Any("seed", config.Seed))

	matches, err := GenerateMatches(ctx, config, stats)
	if err != nil {
		return nil, err
	}
	events := Events(matches)
	stats.Events = len(events)
	return events, nil
}
