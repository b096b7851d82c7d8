package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/reactrole/internal/bindings/storage"
)

// AddBinding inserts one (message, emoji, role) binding.
func (s *Store) AddBinding(ctx context.Context, b storage.Binding) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := validateID("guild id", b.GuildID); err != nil {
		return err
	}
	if err := validateID("message id", b.MessageID); err != nil {
		return err
	}
	if err := validateEmojiKey("emoji key", b.EmojiKey); err != nil {
		return err
	}
	if err := validateID("role id", b.RoleID); err != nil {
		return err
	}

	_, err := s.q.ExecContext(
		ctx,
		`INSERT INTO bindings (guild_id, message_id, emoji_id, role_id)
		 VALUES (?, ?, ?, ?)`,
		b.GuildID, b.MessageID, b.EmojiKey, b.RoleID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateBinding
		}
		return fmt.Errorf("add binding: %w", err)
	}
	return nil
}

// RemoveBindings removes bindings on a message by emoji and/or role filter.
func (s *Store) RemoveBindings(ctx context.Context, messageID, emojiKey, roleID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if err := validateID("message id", messageID); err != nil {
		return 0, err
	}
	if emojiKey == "" && roleID == "" {
		return 0, storage.ErrMissingFilter
	}

	query := `DELETE FROM bindings WHERE message_id = ?`
	args := []any{messageID}
	if emojiKey != "" {
		if err := validateEmojiKey("emoji key", emojiKey); err != nil {
			return 0, err
		}
		query += ` AND emoji_id = ?`
		args = append(args, emojiKey)
	}
	if roleID != "" {
		if err := validateID("role id", roleID); err != nil {
			return 0, err
		}
		query += ` AND role_id = ?`
		args = append(args, roleID)
	}

	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("remove bindings: %w", err)
	}
	return result.RowsAffected()
}

// RemoveAllBindings removes every binding for the message.
func (s *Store) RemoveAllBindings(ctx context.Context, messageID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if err := validateID("message id", messageID); err != nil {
		return 0, err
	}

	result, err := s.q.ExecContext(ctx, `DELETE FROM bindings WHERE message_id = ?`, messageID)
	if err != nil {
		return 0, fmt.Errorf("remove all bindings: %w", err)
	}
	return result.RowsAffected()
}

// GetBindings returns the role ids bound to the emoji on the message.
func (s *Store) GetBindings(ctx context.Context, messageID, emojiKey string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := validateID("message id", messageID); err != nil {
		return nil, err
	}
	if err := validateEmojiKey("emoji key", emojiKey); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(
		ctx,
		`SELECT role_id FROM bindings
		  WHERE message_id = ? AND emoji_id = ?
		  ORDER BY rowid`,
		messageID, emojiKey,
	)
	if err != nil {
		return nil, fmt.Errorf("get bindings: %w", err)
	}
	return collectStrings(rows)
}

// GetBindingMap returns the emoji-to-roles grouping for the message.
func (s *Store) GetBindingMap(ctx context.Context, messageID string) (storage.BindingMap, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := validateID("message id", messageID); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(
		ctx,
		`SELECT emoji_id, role_id FROM bindings
		  WHERE message_id = ?
		  ORDER BY rowid`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("get binding map: %w", err)
	}
	defer rows.Close()

	var m storage.BindingMap
	index := make(map[string]int)
	for rows.Next() {
		var emojiKey, roleID string
		if err := rows.Scan(&emojiKey, &roleID); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		i, ok := index[emojiKey]
		if !ok {
			i = len(m)
			index[emojiKey] = i
			m = append(m, storage.BindingGroup{EmojiKey: emojiKey})
		}
		m[i].RoleIDs = append(m[i].RoleIDs, roleID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bindings: %w", err)
	}
	return m, nil
}

// HasBindings reports whether the message has any bindings.
func (s *Store) HasBindings(ctx context.Context, messageID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	if err := validateID("message id", messageID); err != nil {
		return false, err
	}

	var found int
	row := s.q.QueryRowContext(
		ctx,
		`SELECT 1 FROM bindings WHERE message_id = ? LIMIT 1`,
		messageID,
	)
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("probe bindings: %w", err)
	}
	return true, nil
}

// BoundMessages returns the distinct message ids with bindings in the guild.
func (s *Store) BoundMessages(ctx context.Context, guildID string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := validateID("guild id", guildID); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(
		ctx,
		`SELECT DISTINCT message_id FROM bindings WHERE guild_id = ?`,
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("bound messages: %w", err)
	}
	return collectStrings(rows)
}
