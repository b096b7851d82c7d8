// Package chat declares the surface this engine consumes from the chat
// platform client. The gateway connection, command registration, and REST
// transport live outside this module; they deliver validated events to the
// resolver and implement these interfaces over the platform API.
package chat

import "context"

// MessageRef locates a message on the platform.
type MessageRef struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// ReactionEvent describes a single reaction being added to or removed from
// a message.
type ReactionEvent struct {
	Message  MessageRef
	EmojiKey string
	UserID   string
}

// MemberClient mutates and inspects guild member role state.
//
// Add and remove calls resolve when the platform acknowledges the request,
// not when the change is reflected in observable membership state. The
// platform signals the latter with a separate member-update event.
type MemberClient interface {
	// BotUserID returns the id of the account this engine runs as.
	BotUserID() string

	// MemberRoles returns the role ids the member currently holds.
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)

	// AddMemberRoles grants roles to a member in one batch call.
	AddMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string, reason string) error

	// RemoveMemberRoles revokes roles from a member in one batch call.
	RemoveMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string, reason string) error
}

// ReactionClient mutates reactions on messages.
type ReactionClient interface {
	// AddReaction reacts to the message as the bot account.
	AddReaction(ctx context.Context, msg MessageRef, emojiKey string) error

	// RemoveReaction removes every user's reaction of one emoji.
	RemoveReaction(ctx context.Context, msg MessageRef, emojiKey string) error

	// RemoveUserReaction removes a single user's reaction of one emoji.
	RemoveUserReaction(ctx context.Context, msg MessageRef, emojiKey, userID string) error

	// RemoveAllReactions strips every reaction from the message.
	RemoveAllReactions(ctx context.Context, msg MessageRef) error
}

// Client is the full platform surface the engine depends on.
type Client interface {
	MemberClient
	ReactionClient
}
