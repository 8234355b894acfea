package gradestore

import (
	"context"
	"database/sql"
	"fmt"
	devenv "moodlefetch/dev/env"
	"moodlefetch/pkg/moodle"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Store keeps grade snapshots per portal and user.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at `path`, which may start with
// `<dev_state>` or be ":memory:".
func Open(path string) (Store, error) {
	path, err := devenv.ResolvePath(path)
	if err != nil {
		return Store{}, err
	}
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	// sqlite allows one writer, and ":memory:" is per connection
	database.SetMaxOpenConns(1)

	store, err := NewStore(database)
	if err != nil {
		database.Close()
		return Store{}, err
	}
	return store, nil
}

// NewStore applies the schema to `database`.
func NewStore(database *sql.DB) (Store, error) {
	_, err := database.Exec("pragma foreign_keys = on")
	if err != nil {
		return Store{}, err
	}
	_, err = database.Exec(Schema)
	if err != nil {
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{db: database}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

type Snapshot struct {
	BaseUrl  string
	Username string
	TakenAt  time.Time
	Grades   moodle.Grades
}

func (s Store) Push(ctx context.Context, snapshot Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		"insert into snapshot(base_url, username, taken_at) values (?, ?, ?)",
		snapshot.BaseUrl, snapshot.Username, snapshot.TakenAt.Unix(),
	)
	if err != nil {
		return err
	}
	snapshotId, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i, entry := range snapshot.Grades.Entries() {
		_, err := tx.ExecContext(
			ctx,
			"insert into snapshot_grade(snapshot_id, position, course, grade) values (?, ?, ?, ?)",
			snapshotId, i, entry.Course, entry.Grade,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Latest returns the most recent snapshot, ok is false when there is none.
func (s Store) Latest(ctx context.Context, baseUrl, username string) (snapshot Snapshot, ok bool, err error) {
	var snapshotId int64
	var takenAt int64
	err = s.db.QueryRowContext(
		ctx,
		`select id, taken_at from snapshot
		where base_url = ? and username = ?
		order by taken_at desc, id desc
		limit 1`,
		baseUrl, username,
	).Scan(&snapshotId, &takenAt)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		"select course, grade from snapshot_grade where snapshot_id = ? order by position",
		snapshotId,
	)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer rows.Close()

	var entries []moodle.Grade
	for rows.Next() {
		var entry moodle.Grade
		err := rows.Scan(&entry.Course, &entry.Grade)
		if err != nil {
			return Snapshot{}, false, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, err
	}

	return Snapshot{
		BaseUrl:  baseUrl,
		Username: username,
		TakenAt:  time.Unix(takenAt, 0),
		Grades:   moodle.NewGrades(entries),
	}, true, nil
}

// Prune deletes all but the `keep` most recent snapshots.
func (s Store) Prune(ctx context.Context, baseUrl, username string, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`delete from snapshot
		where base_url = ? and username = ? and id not in (
			select id from snapshot
			where base_url = ? and username = ?
			order by taken_at desc, id desc
			limit ?
		)`,
		baseUrl, username, baseUrl, username, keep,
	)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		"delete from snapshot_grade where snapshot_id not in (select id from snapshot)",
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}
