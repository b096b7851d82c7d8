// Package resolver turns reaction events into role and reaction mutations,
// enforcing mutual-exclusion rules between bound roles.
package resolver

import (
	"context"
	"fmt"
	"log"

	"github.com/louisbranch/reactrole/internal/bindings/storage"
	"github.com/louisbranch/reactrole/internal/chat"
	"github.com/louisbranch/reactrole/internal/userlock"
)

// Resolver reacts to platform events. Platform-call failures during role
// mutation are logged and not compensated: role add/remove is idempotent at
// the platform, so a later event or an operator retry corrects drift.
type Resolver struct {
	store  storage.Store
	client chat.Client
	locks  *userlock.Registry
}

// New creates a resolver over the given store, platform client, and lock
// registry.
func New(store storage.Store, client chat.Client, locks *userlock.Registry) *Resolver {
	return &Resolver{store: store, client: client, locks: locks}
}

// ReactionAdded handles a reaction being added to a message.
//
// Roles mutually exclusive with the bound roles are removed before the bound
// roles are added, so no read of this operation's own bookkeeping observes a
// role coexisting with its displaced partner. Reactions on managed messages
// that map to no role are stripped.
func (r *Resolver) ReactionAdded(ctx context.Context, event chat.ReactionEvent) error {
	// The bot's own reactions are the affordance itself, not a request.
	if event.UserID == r.client.BotUserID() {
		return nil
	}

	managed, err := r.store.HasBindings(ctx, event.Message.MessageID)
	if err != nil {
		return fmt.Errorf("probe message %s: %w", event.Message.MessageID, err)
	}
	if !managed {
		return nil
	}

	rolesToAdd, err := r.store.GetBindings(ctx, event.Message.MessageID, event.EmojiKey)
	if err != nil {
		return fmt.Errorf("get bindings for %s: %w", event.Message.MessageID, err)
	}

	// A managed message, but this emoji maps to no role: someone reacted
	// with an emoji the operator never bound.
	if len(rolesToAdd) == 0 {
		if err := r.client.RemoveReaction(ctx, event.Message, event.EmojiKey); err != nil {
			log.Printf("resolver: remove foreign reaction %s on message %s: %v",
				event.EmojiKey, event.Message.MessageID, err)
		}
		return nil
	}

	mutexSet, err := r.mutexPartners(ctx, event.Message.GuildID, rolesToAdd)
	if err != nil {
		return err
	}

	if err := r.locks.Lock(ctx, event.UserID); err != nil {
		return fmt.Errorf("lock user %s: %w", event.UserID, err)
	}
	// The lock is released by the member-update confirmation event, or by
	// the registry's fallback timer if that event never arrives.

	if err := r.swapRoles(ctx, event, mutexSet, rolesToAdd); err != nil {
		log.Printf("WARN: resolver: update roles for user %s: %v", event.UserID, err)
	}

	// Cosmetic cleanup: the user's reactions for displaced roles no longer
	// match their role state.
	mutexEmojis, err := r.store.GetMutexEmojis(ctx, mutexSet)
	if err != nil {
		return fmt.Errorf("get mutex emojis: %w", err)
	}
	for _, emojiKey := range mutexEmojis {
		if err := r.client.RemoveUserReaction(ctx, event.Message, emojiKey, event.UserID); err != nil {
			log.Printf("resolver: remove mutex reaction %s for user %s: %v",
				emojiKey, event.UserID, err)
		}
	}

	if err := r.store.IncrementAssignments(ctx, int64(len(rolesToAdd))); err != nil {
		return fmt.Errorf("increment assignments: %w", err)
	}

	log.Printf("resolver: assigned roles %v to user %s", rolesToAdd, event.UserID)
	return nil
}

// ReactionRemoved handles a reaction being removed from a message.
//
// A removed bot reaction is re-added: the binding is still configured, so the
// affordance must persist even if an external actor strips it.
func (r *Resolver) ReactionRemoved(ctx context.Context, event chat.ReactionEvent) error {
	if event.UserID == r.client.BotUserID() {
		log.Printf("resolver: replacing removed bot reaction %s on message %s",
			event.EmojiKey, event.Message.MessageID)
		if err := r.client.AddReaction(ctx, event.Message, event.EmojiKey); err != nil {
			log.Printf("WARN: resolver: re-add bot reaction %s: %v", event.EmojiKey, err)
		}
		return nil
	}

	managed, err := r.store.HasBindings(ctx, event.Message.MessageID)
	if err != nil {
		return fmt.Errorf("probe message %s: %w", event.Message.MessageID, err)
	}
	if !managed {
		return nil
	}

	rolesToRemove, err := r.store.GetBindings(ctx, event.Message.MessageID, event.EmojiKey)
	if err != nil {
		return fmt.Errorf("get bindings for %s: %w", event.Message.MessageID, err)
	}
	// Fired when ReactionAdded strips a foreign reaction, among other cases.
	if len(rolesToRemove) == 0 {
		return nil
	}

	if err := r.locks.Lock(ctx, event.UserID); err != nil {
		return fmt.Errorf("lock user %s: %w", event.UserID, err)
	}

	current, err := r.client.MemberRoles(ctx, event.Message.GuildID, event.UserID)
	if err != nil {
		// Nothing was mutated, so no confirmation event will arrive.
		r.locks.Unlock(event.UserID)
		log.Printf("WARN: resolver: fetch roles for user %s: %v", event.UserID, err)
		return nil
	}

	// No confirmation fires if the roles do not actually change, so skip
	// the call instead of leaving the lock to time out.
	if !holdsAny(current, rolesToRemove) {
		r.locks.Unlock(event.UserID)
		return nil
	}

	if err := r.client.RemoveMemberRoles(ctx, event.Message.GuildID, event.UserID,
		rolesToRemove, "reaction role removal"); err != nil {
		log.Printf("WARN: resolver: remove roles %v from user %s: %v",
			rolesToRemove, event.UserID, err)
		return nil
	}

	log.Printf("resolver: removed roles %v from user %s", rolesToRemove, event.UserID)
	return nil
}

// MemberUpdated handles the platform confirming a member's roles changed.
// It releases the user's lock; the whole handler is exactly that.
func (r *Resolver) MemberUpdated(userID string) {
	r.locks.Unlock(userID)
}

// MessageDeleted removes every binding configured on a deleted message.
func (r *Resolver) MessageDeleted(ctx context.Context, messageID string) error {
	removed, err := r.store.RemoveAllBindings(ctx, messageID)
	if err != nil {
		return fmt.Errorf("clear bindings for deleted message %s: %w", messageID, err)
	}
	if removed > 0 {
		log.Printf("resolver: message %s deleted, removed %d bindings", messageID, removed)
	}
	return nil
}

// MessagesBulkDeleted handles a bulk deletion as individual deletions.
func (r *Resolver) MessagesBulkDeleted(ctx context.Context, messageIDs []string) error {
	for _, messageID := range messageIDs {
		if err := r.MessageDeleted(ctx, messageID); err != nil {
			return err
		}
	}
	return nil
}

// GuildLeft deletes everything stored for a guild the bot left.
func (r *Resolver) GuildLeft(ctx context.Context, guildID string) error {
	if err := r.store.ClearGuildData(ctx, guildID); err != nil {
		return fmt.Errorf("clear guild %s: %w", guildID, err)
	}
	log.Printf("resolver: left guild %s, deleted all related data", guildID)
	return nil
}

// mutexPartners unions the mutex partners of every role in roles.
func (r *Resolver) mutexPartners(ctx context.Context, guildID string, roles []string) ([]string, error) {
	var partners []string
	seen := make(map[string]bool)
	for _, roleID := range roles {
		more, err := r.store.GetMutexPartners(ctx, guildID, roleID)
		if err != nil {
			return nil, fmt.Errorf("get mutex partners for %s: %w", roleID, err)
		}
		for _, partner := range more {
			if !seen[partner] {
				seen[partner] = true
				partners = append(partners, partner)
			}
		}
	}
	return partners, nil
}

// swapRoles removes displaced roles strictly before adding new ones.
func (r *Resolver) swapRoles(ctx context.Context, event chat.ReactionEvent, remove, add []string) error {
	if len(remove) > 0 {
		if err := r.client.RemoveMemberRoles(ctx, event.Message.GuildID, event.UserID,
			remove, "exclusive role displaced"); err != nil {
			return fmt.Errorf("remove mutex roles: %w", err)
		}
	}
	if err := r.client.AddMemberRoles(ctx, event.Message.GuildID, event.UserID,
		add, "reaction role assignment"); err != nil {
		return fmt.Errorf("add roles: %w", err)
	}
	return nil
}

func holdsAny(held, candidates []string) bool {
	for _, c := range candidates {
		for _, h := range held {
			if c == h {
				return true
			}
		}
	}
	return false
}
