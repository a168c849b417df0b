package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrBuildNotFound is returned when no build has the requested id.
var ErrBuildNotFound = errors.New("build not found")

// ReadBuild retrieves a build and its programs.
// Programs are ordered by location id.
// Returns ErrBuildNotFound if no build has the given id.
func (s *Store) ReadBuild(ctx context.Context, id string) (Build, error) {
	var b Build
	var warnings string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, fingerprint, source, warnings, compiler_version, ir_version
		FROM builds
		WHERE id = ?
	`, id).Scan(&b.ID, &b.Seq, &b.Fingerprint, &b.Source, &warnings, &b.CompilerVersion, &b.IRVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	if err != nil {
		return Build{}, fmt.Errorf("read build: %w", err)
	}

	if b.Warnings, err = unmarshalWarnings(warnings); err != nil {
		return Build{}, err
	}
	if b.Programs, err = s.readPrograms(ctx, id); err != nil {
		return Build{}, err
	}
	return b, nil
}

func (s *Store) readPrograms(ctx context.Context, buildID string) ([]Program, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, location, body, hash, statements
		FROM programs
		WHERE build_id = ?
		ORDER BY position ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer rows.Close()

	programs := []Program{}
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.Position, &p.Location, &p.Body, &p.Hash, &p.Statements); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}
	return programs, nil
}

// ListBuilds returns every build without programs, newest first.
func (s *Store) ListBuilds(ctx context.Context) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, fingerprint, source, warnings, compiler_version, ir_version
		FROM builds
		ORDER BY seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		var b Build
		var warnings string
		if err := rows.Scan(&b.ID, &b.Seq, &b.Fingerprint, &b.Source, &warnings, &b.CompilerVersion, &b.IRVersion); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		if b.Warnings, err = unmarshalWarnings(warnings); err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// LatestByFingerprint returns the id of the newest build with the given
// graph fingerprint. It reports false if there is none.
func (s *Store) LatestByFingerprint(ctx context.Context, fingerprint string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM builds
		WHERE fingerprint = ?
		ORDER BY seq DESC
		LIMIT 1
	`, fingerprint).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query fingerprint: %w", err)
	}
	return id, true, nil
}

// ReadChannels returns the channels recorded for a build in insertion order.
func (s *Store) ReadChannels(ctx context.Context, buildID string) ([]ChannelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT build_id, shape, sender, receiver, sink, source
		FROM channels
		WHERE build_id = ?
		ORDER BY id ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	channels := []ChannelRecord{}
	for rows.Next() {
		var c ChannelRecord
		if err := rows.Scan(&c.BuildID, &c.Shape, &c.Sender, &c.Receiver, &c.Sink, &c.Source); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return channels, nil
}
