package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/reactrole/internal/bindings/storage"
)

// AddMutexPair records two roles as mutually exclusive for a guild. The pair
// is unordered: insertion first probes for the pair as given, then inserts
// flipped so an existing record in either order trips the primary key.
func (s *Store) AddMutexPair(ctx context.Context, p storage.MutexPair) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := validateID("guild id", p.GuildID); err != nil {
		return err
	}
	if err := validateID("role a", p.RoleA); err != nil {
		return err
	}
	if err := validateID("role b", p.RoleB); err != nil {
		return err
	}
	if p.RoleA == p.RoleB {
		return storage.ErrSelfMutex
	}

	var found int
	row := s.q.QueryRowContext(
		ctx,
		`SELECT 1 FROM mutex WHERE guild_id = ? AND role_id_1 = ? AND role_id_2 = ?`,
		p.GuildID, p.RoleA, p.RoleB,
	)
	if err := row.Scan(&found); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("probe mutex pair: %w", err)
	}
	if found == 1 {
		return storage.ErrDuplicateMutex
	}

	_, err := s.q.ExecContext(
		ctx,
		`INSERT INTO mutex (guild_id, role_id_1, role_id_2) VALUES (?, ?, ?)`,
		p.GuildID, p.RoleB, p.RoleA,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateMutex
		}
		return fmt.Errorf("add mutex pair: %w", err)
	}
	return nil
}

// RemoveMutexPair deletes the pair in both orderings and returns the total
// rows removed.
func (s *Store) RemoveMutexPair(ctx context.Context, p storage.MutexPair) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if err := validateID("guild id", p.GuildID); err != nil {
		return 0, err
	}
	if err := validateID("role a", p.RoleA); err != nil {
		return 0, err
	}
	if err := validateID("role b", p.RoleB); err != nil {
		return 0, err
	}

	result, err := s.q.ExecContext(
		ctx,
		`DELETE FROM mutex
		  WHERE guild_id = ?
		    AND ((role_id_1 = ? AND role_id_2 = ?) OR (role_id_1 = ? AND role_id_2 = ?))`,
		p.GuildID, p.RoleA, p.RoleB, p.RoleB, p.RoleA,
	)
	if err != nil {
		return 0, fmt.Errorf("remove mutex pair: %w", err)
	}
	return result.RowsAffected()
}

// GetMutexPartners returns the roles exclusive with the given role. Pairs may
// have been stored in either column order, so both are searched.
func (s *Store) GetMutexPartners(ctx context.Context, guildID, roleID string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := validateID("guild id", guildID); err != nil {
		return nil, err
	}
	if err := validateID("role id", roleID); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(
		ctx,
		`SELECT role_id_1 FROM mutex WHERE guild_id = ? AND role_id_2 = ?
		 UNION
		 SELECT role_id_2 FROM mutex WHERE guild_id = ? AND role_id_1 = ?`,
		guildID, roleID, guildID, roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("get mutex partners: %w", err)
	}
	return collectStrings(rows)
}

// GetMutexEmojis returns the distinct emoji keys bound to any of the given
// roles, used to strip reactions for displaced roles in bulk.
func (s *Store) GetMutexEmojis(ctx context.Context, roleIDs []string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return nil, nil
	}
	for _, roleID := range roleIDs {
		if err := validateID("role id", roleID); err != nil {
			return nil, err
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(roleIDs)), ", ")
	args := make([]any, len(roleIDs))
	for i, roleID := range roleIDs {
		args[i] = roleID
	}

	rows, err := s.q.QueryContext(
		ctx,
		`SELECT DISTINCT emoji_id FROM bindings WHERE role_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get mutex emojis: %w", err)
	}
	return collectStrings(rows)
}
