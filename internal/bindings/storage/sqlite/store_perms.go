package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/reactrole/internal/bindings/storage"
)

// AddAllowedRole authorizes a role to administer bindings for the guild.
func (s *Store) AddAllowedRole(ctx context.Context, guildID, roleID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := validateID("guild id", guildID); err != nil {
		return err
	}
	if err := validateID("role id", roleID); err != nil {
		return err
	}

	_, err := s.q.ExecContext(
		ctx,
		`INSERT INTO perms (guild_id, role_id) VALUES (?, ?)`,
		guildID, roleID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("add allowed role: %w", err)
	}
	return nil
}

// RemoveAllowedRole revokes the authorization and returns rows removed.
func (s *Store) RemoveAllowedRole(ctx context.Context, guildID, roleID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if err := validateID("guild id", guildID); err != nil {
		return 0, err
	}
	if err := validateID("role id", roleID); err != nil {
		return 0, err
	}

	result, err := s.q.ExecContext(
		ctx,
		`DELETE FROM perms WHERE guild_id = ? AND role_id = ?`,
		guildID, roleID,
	)
	if err != nil {
		return 0, fmt.Errorf("remove allowed role: %w", err)
	}
	return result.RowsAffected()
}

// GetAllowedRoles returns the roles authorized to administer the guild.
func (s *Store) GetAllowedRoles(ctx context.Context, guildID string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := validateID("guild id", guildID); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(
		ctx,
		`SELECT role_id FROM perms WHERE guild_id = ? ORDER BY rowid`,
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("get allowed roles: %w", err)
	}
	return collectStrings(rows)
}

// ClearGuildData deletes all bindings, mutex pairs, and permission roles for
// the guild. A guild with no stored data clears to a no-op.
func (s *Store) ClearGuildData(ctx context.Context, guildID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := validateID("guild id", guildID); err != nil {
		return err
	}

	for _, table := range []string{"bindings", "mutex", "perms"} {
		if _, err := s.q.ExecContext(
			ctx,
			`DELETE FROM `+table+` WHERE guild_id = ?`,
			guildID,
		); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// IncrementAssignments adds n to the monotonic assignment counter.
func (s *Store) IncrementAssignments(ctx context.Context, n int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("assignment counter cannot decrease (n = %d)", n)
	}
	if n == 0 {
		return nil
	}

	if _, err := s.q.ExecContext(
		ctx,
		`UPDATE meta SET assignments = assignments + ?`,
		n,
	); err != nil {
		return fmt.Errorf("increment assignments: %w", err)
	}
	return nil
}

// Stats returns aggregate counts over stored state.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Stats{}, err
	}

	var stats storage.Stats
	row := s.q.QueryRowContext(ctx, `SELECT COUNT(DISTINCT guild_id) FROM bindings`)
	if err := row.Scan(&stats.GuildCount); err != nil {
		return storage.Stats{}, fmt.Errorf("count guilds: %w", err)
	}

	row = s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bindings`)
	if err := row.Scan(&stats.BindingCount); err != nil {
		return storage.Stats{}, fmt.Errorf("count bindings: %w", err)
	}

	row = s.q.QueryRowContext(ctx, `SELECT assignments FROM meta`)
	if err := row.Scan(&stats.AssignmentCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats, nil
		}
		return storage.Stats{}, fmt.Errorf("read assignment counter: %w", err)
	}
	return stats, nil
}
