package testevents

import (
	"context"
	"fmt"
	"log"

	"github.com/okian/panelfactor/internal/adapters/ingest"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/panel"
	"github.com/okian/panelfactor/internal/domain/results"
)

// verifyFile reads the written table back and checks it against stats.
func verifyFile(ctx context.Context, config *Config, filename string, stats *Stats) error {
	log.Println("🔍 Verifying written events...")

	events, err := ingest.ReadFile(ctx, filename)
	if err != nil {
		return err
	}
	if len(events) != stats.Events {
		return fmt.Errorf("read %d events, wrote %d", len(events), stats.Events)
	}
	if err := VerifyEvents(ctx, config, events); err != nil {
		return err
	}

	log.Println("✅ Event verification completed")
	return nil
}

// VerifyEvents checks that every team of every season played each other
// team twice and that every match has a result.
func VerifyEvents(ctx context.Context, config *Config, events []model.Event) error {
	goals, err := panel.Neutralize(ctx, events, results.GoalRoles(ColHomeGoals, ColAwayGoals)...)
	if err != nil {
		return fmt.Errorf("neutralize goals: %w", err)
	}
	outcomes := results.FromGoals(goals)

	type seasonTeam struct {
		Division, Season, Team string
	}
	played := make(map[seasonTeam]int)
	for _, r := range model.FilterField(outcomes, results.Win) {
		played[seasonTeam{r.Division, r.Season, r.Team}]++
	}

	n := config.Teams
	if n%2 == 1 {
		n++
	}
	want := 2 * (n - 1)
	for k, got := range played {
		if got != want {
			return fmt.Errorf("%s %s %s played %d matches, want %d", k.Division, k.Season, k.Team, got, want)
		}
	}
	if len(played) != len(config.Divisions)*config.Seasons*n {
		return fmt.Errorf("found %d team seasons, want %d", len(played), len(config.Divisions)*config.Seasons*n)
	}
	return nil
}
