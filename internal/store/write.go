package store

import (
	"context"
	"fmt"
)

// Build is one stored compilation.
type Build struct {
	ID              string
	Seq             int64
	Fingerprint     string
	Source          string
	Warnings        []string
	CompilerVersion string
	IRVersion       string
	Programs        []Program
}

// Program is the emitted program of one location.
//
// Position is the program's index in the build's location order. Raw
// location ids are not unique across kinds, so they cannot key a program.
type Program struct {
	Position   int
	Location   string
	Body       string
	Hash       string
	Statements int
}

// ChannelRecord is a transport established for one network edge.
type ChannelRecord struct {
	BuildID  string
	Shape    string
	Sender   string
	Receiver string
	Sink     string
	Source   string
}

// WriteBuild inserts a build and its programs in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a build id is
// silently ignored. The build's seq is assigned here and returned.
func (s *Store) WriteBuild(ctx context.Context, b Build) (int64, error) {
	warnings, err := marshalWarnings(b.Warnings)
	if err != nil {
		return 0, fmt.Errorf("write build: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write build: begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM builds`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write build: next seq: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO builds
		(id, seq, fingerprint, source, warnings, compiler_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		b.ID,
		seq,
		b.Fingerprint,
		b.Source,
		warnings,
		b.CompilerVersion,
		b.IRVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write build: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT seq FROM builds WHERE id = ?`, b.ID).Scan(&seq); err != nil {
			return 0, fmt.Errorf("write build: existing seq: %w", err)
		}
		return seq, nil
	}

	for _, p := range b.Programs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO programs
			(build_id, position, location, body, hash, statements)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			b.ID,
			p.Position,
			p.Location,
			p.Body,
			p.Hash,
			p.Statements,
		)
		if err != nil {
			return 0, fmt.Errorf("write program %s: %w", p.Location, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write build: commit: %w", err)
	}
	return seq, nil
}

// RecordChannel stores an established transport.
// Uses ON CONFLICT DO NOTHING - reconnecting the same edge of a build is
// silently ignored.
func (s *Store) RecordChannel(ctx context.Context, c ChannelRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels
		(build_id, shape, sender, receiver, sink, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		c.BuildID,
		c.Shape,
		c.Sender,
		c.Receiver,
		c.Sink,
		c.Source,
	)
	if err != nil {
		return fmt.Errorf("record channel: %w", err)
	}
	return nil
}
