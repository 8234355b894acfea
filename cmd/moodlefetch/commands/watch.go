package commands

import (
	"context"
	"fmt"
	"log/slog"
	"moodlefetch/internal/components/chrono"
	"moodlefetch/internal/components/telemetry"
	"moodlefetch/internal/gradestore"
	"moodlefetch/pkg/moodle"
	"sync"

	"github.com/spf13/cobra"
)

var (
	watchSchedule *string
	watchZone     *string
	watchDb       *string
	watchKeep     *int
)

func init() {
	watchSchedule = watchCmd.Flags().String("schedule", "@every 30m", "The cron schedule to check grades on.")
	watchZone = watchCmd.Flags().String("zone", "", "The IANA time zone the schedule is in, defaults to local time.")
	watchDb = watchCmd.Flags().String("db", "<dev_state>/grades.db", "The sqlite file grade snapshots are kept in, empty keeps them in memory only.")
	watchKeep = watchCmd.Flags().Int("keep", 50, "How many snapshots to keep per user.")
	rootCmd.AddCommand(watchCmd)
}

type gradeChange struct {
	Course string
	Before string
	After  string
}

// diffGrades lists courses whose grade differs between two fetches in the
// order of `next`, followed by courses that disappeared.
func diffGrades(prev, next moodle.Grades) []gradeChange {
	var changes []gradeChange
	for _, entry := range next.Entries() {
		before, ok := prev.Get(entry.Course)
		if ok && before == entry.Grade {
			continue
		}
		changes = append(changes, gradeChange{Course: entry.Course, Before: before, After: entry.Grade})
	}
	for _, entry := range prev.Entries() {
		if _, ok := next.Get(entry.Course); !ok {
			changes = append(changes, gradeChange{Course: entry.Course, Before: entry.Grade})
		}
	}
	return changes
}

// gradeWatcher refetches grades and reports what changed since the last fetch.
// Runs are serialized since they share one client.
type gradeWatcher struct {
	client *moodle.Client
	clock  chrono.API
	tel    telemetry.API

	// store is optional, with it the baseline survives restarts.
	store    *gradestore.Store
	baseUrl  string
	username string
	keep     int

	mutex    sync.Mutex
	loaded   bool
	previous *moodle.Grades
	onChange func(gradeChange)
}

func (w *gradeWatcher) loadBaseline(ctx context.Context) error {
	if w.loaded || w.store == nil {
		return nil
	}
	snapshot, ok, err := w.store.Latest(ctx, w.baseUrl, w.username)
	if err != nil {
		return fmt.Errorf("load last snapshot: %w", err)
	}
	w.loaded = true
	if ok {
		w.previous = &snapshot.Grades
		w.tel.ReportDebug("loaded last snapshot", "taken_at", snapshot.TakenAt)
	}
	return nil
}

func (w *gradeWatcher) save(ctx context.Context, grades moodle.Grades) error {
	if w.store == nil {
		return nil
	}
	err := w.store.Push(ctx, gradestore.Snapshot{
		BaseUrl:  w.baseUrl,
		Username: w.username,
		TakenAt:  w.clock.Now(),
		Grades:   grades,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if w.keep > 0 {
		return w.store.Prune(ctx, w.baseUrl, w.username, w.keep)
	}
	return nil
}

func (w *gradeWatcher) check(ctx context.Context) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	err := w.loadBaseline(ctx)
	if err != nil {
		return err
	}

	grades, err := w.client.Grades(ctx).Unwrap()
	if err != nil {
		return err
	}
	w.tel.ReportCount("watch.courses", int64(grades.Len()))

	if w.previous != nil {
		for _, change := range diffGrades(*w.previous, grades) {
			w.onChange(change)
		}
	}
	w.previous = &grades
	w.tel.ReportDebug("checked grades", "at", w.clock.Now())

	return w.save(ctx, grades)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--schedule <cron spec>] [--zone <tz>] [--db <path>]",
	Short: "Checks grades on a schedule and logs every grade that changed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		clock, err := chrono.NewStandardImpl(*watchZone)
		if err != nil {
			return fmt.Errorf("load zone: %w", err)
		}
		client, err := authenticatedClient(ctx)
		if err != nil {
			return err
		}

		watcher := &gradeWatcher{
			client:   client,
			clock:    clock,
			tel:      tel,
			baseUrl:  config.BaseUrl,
			username: config.Username,
			keep:     *watchKeep,
			onChange: func(change gradeChange) {
				slog.Info("grade changed", "course", change.Course, "before", change.Before, "after", change.After)
			},
		}
		if *watchDb != "" {
			store, err := gradestore.Open(*watchDb)
			if err != nil {
				return fmt.Errorf("open snapshot db: %w", err)
			}
			defer store.Close()
			watcher.store = &store
		}

		err = watcher.check(ctx)
		if err != nil {
			return err
		}

		cronner := chrono.NewStandardCron(tel, clock)
		err = cronner.Cron(*watchSchedule, func() {
			err := watcher.check(ctx)
			if err != nil {
				tel.ReportBroken("watch", err)
			}
		})
		if err != nil {
			<-cronner.Stop().Done()
			return fmt.Errorf("schedule '%s': %w", *watchSchedule, err)
		}
		slog.Info("watching grades", "schedule", *watchSchedule)

		<-ctx.Done()
		<-cronner.Stop().Done()
		return nil
	},
}
