// Package sync scans Amplifier session directories, stores parsed
// session records, and recomputes the recent weekly rollups. It is
// the write path behind the refresh and watch commands.
package sync

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/ampdev/amplifier-insights/internal/db"
	"github.com/ampdev/amplifier-insights/internal/metrics"
	"github.com/ampdev/amplifier-insights/internal/parser"
)

// DefaultWeeks is how many recent weeks of rollups a refresh
// recomputes.
const DefaultWeeks = 4

// Engine coordinates scanning, parsing, storing, and rollup
// recomputation.
type Engine struct {
	db          *db.DB
	projectsDir string
	userID      string
	weeks       int
	now         func() time.Time
}

// NewEngine creates a sync engine. weeks <= 0 selects DefaultWeeks.
func NewEngine(database *db.DB, projectsDir, userID string, weeks int) *Engine {
	if userID == "" {
		userID = metrics.DefaultUserID
	}
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	return &Engine{
		db:          database,
		projectsDir: projectsDir,
		userID:      userID,
		weeks:       weeks,
		now:         time.Now,
	}
}

// RefreshResult reports what a refresh did.
type RefreshResult struct {
	Found         int
	Saved         int
	Failed        int
	WeeksComputed int
}

// Refresh scans every session directory, parses and stores each
// session, then recomputes the recent weekly rollups. Individual
// session failures are logged and skipped; they never abort the
// refresh.
func (e *Engine) Refresh(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult

	sessionDirs := parser.FindSessions(e.projectsDir)
	res.Found = len(sessionDirs)

	for _, dir := range sessionDirs {
		session, err := parser.ParseSession(dir)
		if err != nil {
			res.Failed++
			log.Printf("warning: failed to parse %s: %v",
				filepath.Base(dir), err)
			continue
		}
		if err := e.db.SaveSession(session); err != nil {
			res.Failed++
			log.Printf("warning: failed to save %s: %v",
				session.SessionID, err)
			continue
		}
		res.Saved++
	}

	computed, err := e.ComputeWeeks(ctx)
	if err != nil {
		return res, err
	}
	res.WeeksComputed = computed
	return res, nil
}

// ComputeWeeks recomputes rollups for the most recent weeks,
// oldest first so each week's growth comparison finds the prior
// week's rollup already stored.
func (e *Engine) ComputeWeeks(ctx context.Context) (int, error) {
	now := e.now()
	computed := 0

	for i := e.weeks - 1; i >= 0; i-- {
		weekStart := metrics.WeekStart(now.AddDate(0, 0, -7*i))
		weekEnd := weekStart.AddDate(0, 0, 7)

		sessions, err := e.db.GetSessionsInRange(ctx, weekStart, weekEnd)
		if err != nil {
			return computed, err
		}
		previous, err := e.db.GetWeeklyMetrics(
			ctx, e.userID, weekStart.AddDate(0, 0, -7),
		)
		if err != nil {
			return computed, err
		}

		m := metrics.Aggregate(sessions, weekStart, previous)
		m.UserID = e.userID
		if err := e.db.SaveWeeklyMetrics(m); err != nil {
			return computed, err
		}
		computed++
	}
	return computed, nil
}
