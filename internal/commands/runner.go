// Package commands implements the admin mutations over reaction-role state.
//
// Binding mutations touch two systems with no shared transaction: the local
// mapping store and the platform's reaction state. Each operation performs
// the local store mutation first, inside a store transaction; only then does
// it attempt the remote reaction side effect, and a remote failure triggers
// a compensating local mutation restoring the pre-operation state. Success
// is reported to the caller only after both steps (or compensation) finish.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/reactrole/internal/bindings/storage"
	"github.com/louisbranch/reactrole/internal/chat"
)

// Runner sequences admin mutations against the store and the platform.
type Runner struct {
	store     storage.Store
	reactions chat.ReactionClient
}

// New creates a runner over the given store and reaction client.
func New(store storage.Store, reactions chat.ReactionClient) *Runner {
	return &Runner{store: store, reactions: reactions}
}

// MutexConflictError reports a binding rejected because its role is mutually
// exclusive with roles already bound to the same emoji on the message.
type MutexConflictError struct {
	EmojiKey string
	RoleIDs  []string
}

func (e *MutexConflictError) Error() string {
	return fmt.Sprintf("emoji %s already binds mutually exclusive roles %s",
		e.EmojiKey, strings.Join(e.RoleIDs, ", "))
}

// BindResult reports a successful Bind.
type BindResult struct {
	// AlsoBound lists other emoji keys on the message already mapped to the
	// same role.
	AlsoBound []string
}

// Bind maps an emoji to a role on a message. The binding is rejected before
// anything is persisted when the role is a mutex partner of a role already
// bound to the same emoji. On success the bot reacts to the message so the
// affordance is visible; if that reaction fails the stored binding is
// removed again.
func (r *Runner) Bind(ctx context.Context, msg chat.MessageRef, emojiKey, roleID string) (BindResult, error) {
	binding := storage.Binding{
		GuildID:   msg.GuildID,
		MessageID: msg.MessageID,
		EmojiKey:  emojiKey,
		RoleID:    roleID,
	}

	var result BindResult
	record := func(ctx context.Context) error {
		return r.store.Transact(ctx, func(tx storage.Store) error {
			mapping, err := tx.GetBindingMap(ctx, msg.MessageID)
			if err != nil {
				return err
			}
			partners, err := tx.GetMutexPartners(ctx, msg.GuildID, roleID)
			if err != nil {
				return err
			}
			var conflicting []string
			for _, partner := range partners {
				if mapping.Has(emojiKey, partner) {
					conflicting = append(conflicting, partner)
				}
			}
			if len(conflicting) > 0 {
				return &MutexConflictError{EmojiKey: emojiKey, RoleIDs: conflicting}
			}

			if err := tx.AddBinding(ctx, binding); err != nil {
				return err
			}

			for _, group := range mapping {
				if group.EmojiKey == emojiKey {
					continue
				}
				for _, bound := range group.RoleIDs {
					if bound == roleID {
						result.AlsoBound = append(result.AlsoBound, group.EmojiKey)
						break
					}
				}
			}
			return nil
		})
	}

	var sg saga
	sg.add("record binding", record, func(ctx context.Context) error {
		_, err := r.store.RemoveBindings(ctx, msg.MessageID, emojiKey, roleID)
		return err
	})
	sg.add("add reaction", func(ctx context.Context) error {
		return r.reactions.AddReaction(ctx, msg, emojiKey)
	}, nil)

	if err := sg.run(ctx); err != nil {
		return BindResult{}, err
	}
	return result, nil
}

// UnbindResult reports the (emoji, role) pairs a successful Unbind removed.
type UnbindResult struct {
	Removed [][2]string
}

// Unbind removes bindings on a message by emoji and/or role filter; at least
// one filter is required. After the store mutation the binding map is diffed
// before/after so only reactions left with no surviving binding are removed
// from the message. A remote failure restores the removed bindings.
func (r *Runner) Unbind(ctx context.Context, msg chat.MessageRef, emojiKey, roleID string) (UnbindResult, error) {
	if emojiKey == "" && roleID == "" {
		return UnbindResult{}, storage.ErrMissingFilter
	}

	var before, after storage.BindingMap
	record := func(ctx context.Context) error {
		return r.store.Transact(ctx, func(tx storage.Store) error {
			var err error
			if before, err = tx.GetBindingMap(ctx, msg.MessageID); err != nil {
				return err
			}
			// Intentionally not revoking roles from members who hold them.
			if _, err = tx.RemoveBindings(ctx, msg.MessageID, emojiKey, roleID); err != nil {
				return err
			}
			after, err = tx.GetBindingMap(ctx, msg.MessageID)
			return err
		})
	}

	var sg saga
	sg.add("remove bindings", record, func(ctx context.Context) error {
		return r.restoreBindings(ctx, msg, before.Diff(after))
	})
	sg.add("remove orphaned reactions", func(ctx context.Context) error {
		for _, orphan := range orphanedEmojis(before, after) {
			if err := r.reactions.RemoveReaction(ctx, msg, orphan); err != nil {
				return err
			}
		}
		return nil
	}, nil)

	if err := sg.run(ctx); err != nil {
		return UnbindResult{}, err
	}
	return UnbindResult{Removed: before.Diff(after)}, nil
}

// UnbindAll removes every binding on a message along with every reaction,
// and returns the number of bindings removed. A remote failure restores the
// removed bindings.
func (r *Runner) UnbindAll(ctx context.Context, msg chat.MessageRef) (int64, error) {
	var before storage.BindingMap
	var removed int64
	record := func(ctx context.Context) error {
		return r.store.Transact(ctx, func(tx storage.Store) error {
			var err error
			if before, err = tx.GetBindingMap(ctx, msg.MessageID); err != nil {
				return err
			}
			removed, err = tx.RemoveAllBindings(ctx, msg.MessageID)
			return err
		})
	}

	var sg saga
	sg.add("remove all bindings", record, func(ctx context.Context) error {
		return r.restoreBindings(ctx, msg, before.Pairs())
	})
	sg.add("remove all reactions", func(ctx context.Context) error {
		return r.reactions.RemoveAllReactions(ctx, msg)
	}, nil)

	if err := sg.run(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

// CopyResult reports how far a copy got.
type CopyResult struct {
	Copied int
	Total  int
}

// CopyBindings copies every binding from one message to another, reacting to
// the target as it goes. Copying is atomic per binding, not as a whole: a
// failure partway leaves already-copied bindings in place and reports the
// partial progress alongside the error.
func (r *Runner) CopyBindings(ctx context.Context, from, to chat.MessageRef) (CopyResult, error) {
	if from.MessageID == to.MessageID {
		return CopyResult{}, fmt.Errorf("cannot copy a message onto itself")
	}

	mapping, err := r.store.GetBindingMap(ctx, from.MessageID)
	if err != nil {
		return CopyResult{}, fmt.Errorf("read source bindings: %w", err)
	}

	pairs := mapping.Pairs()
	result := CopyResult{Total: len(pairs)}
	for _, pair := range pairs {
		binding := storage.Binding{
			GuildID:   to.GuildID,
			MessageID: to.MessageID,
			EmojiKey:  pair[0],
			RoleID:    pair[1],
		}

		var sg saga
		sg.add("record binding", func(ctx context.Context) error {
			return r.store.Transact(ctx, func(tx storage.Store) error {
				return tx.AddBinding(ctx, binding)
			})
		}, func(ctx context.Context) error {
			_, err := r.store.RemoveBindings(ctx, to.MessageID, binding.EmojiKey, binding.RoleID)
			return err
		})
		sg.add("add reaction", func(ctx context.Context) error {
			return r.reactions.AddReaction(ctx, to, binding.EmojiKey)
		}, nil)

		if err := sg.run(ctx); err != nil {
			return result, fmt.Errorf("copy %s -> %s: %w", binding.EmojiKey, to.MessageID, err)
		}
		result.Copied++
	}
	return result, nil
}

// AddMutex makes two roles mutually exclusive for a guild.
func (r *Runner) AddMutex(ctx context.Context, p storage.MutexPair) error {
	return r.store.AddMutexPair(ctx, p)
}

// RemoveMutex lifts the exclusivity between two roles and returns the number
// of records removed.
func (r *Runner) RemoveMutex(ctx context.Context, p storage.MutexPair) (int64, error) {
	return r.store.RemoveMutexPair(ctx, p)
}

// AllowRole authorizes a role to administer bindings for the guild.
func (r *Runner) AllowRole(ctx context.Context, guildID, roleID string) error {
	return r.store.AddAllowedRole(ctx, guildID, roleID)
}

// DisallowRole revokes the authorization and returns rows removed.
func (r *Runner) DisallowRole(ctx context.Context, guildID, roleID string) (int64, error) {
	return r.store.RemoveAllowedRole(ctx, guildID, roleID)
}

// Reset deletes everything stored for the guild.
func (r *Runner) Reset(ctx context.Context, guildID string) error {
	return r.store.ClearGuildData(ctx, guildID)
}

// Stats returns aggregate counts over stored state.
func (r *Runner) Stats(ctx context.Context) (storage.Stats, error) {
	return r.store.Stats(ctx)
}

// restoreBindings re-inserts pairs removed by a store mutation whose remote
// side effect failed.
func (r *Runner) restoreBindings(ctx context.Context, msg chat.MessageRef, pairs [][2]string) error {
	return r.store.Transact(ctx, func(tx storage.Store) error {
		for _, pair := range pairs {
			err := tx.AddBinding(ctx, storage.Binding{
				GuildID:   msg.GuildID,
				MessageID: msg.MessageID,
				EmojiKey:  pair[0],
				RoleID:    pair[1],
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// orphanedEmojis returns the emoji keys bound before the mutation that bind
// nothing after it.
func orphanedEmojis(before, after storage.BindingMap) []string {
	var orphans []string
	for _, emojiKey := range before.Emojis() {
		if !after.HasEmoji(emojiKey) {
			orphans = append(orphans, emojiKey)
		}
	}
	return orphans
}
