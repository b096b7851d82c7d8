// Package storage defines persistence contracts for reaction-role state.
package storage

import (
	"context"
	"errors"
)

// ErrDuplicateBinding indicates the (message, emoji, role) triple already exists.
var ErrDuplicateBinding = errors.New("binding already exists")

// ErrDuplicateMutex indicates the role pair is already mutually exclusive.
var ErrDuplicateMutex = errors.New("mutex pair already exists")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInvalidID indicates a malformed platform id. Rejected before any I/O.
var ErrInvalidID = errors.New("invalid platform id")

// ErrInvalidEmojiKey indicates a value that is neither a custom emoji id nor
// a unicode emoji literal. Rejected before any I/O.
var ErrInvalidEmojiKey = errors.New("invalid emoji key")

// ErrMissingFilter indicates a removal was requested with neither an emoji
// nor a role filter.
var ErrMissingFilter = errors.New("need at least one of emoji or role")

// ErrSelfMutex indicates an attempt to make a role exclusive with itself.
var ErrSelfMutex = errors.New("role cannot be exclusive with itself")

// Binding associates an emoji reaction on a message with a role: reacting
// with the emoji grants the role.
type Binding struct {
	GuildID   string
	MessageID string
	EmojiKey  string
	RoleID    string
}

// MutexPair designates two roles as mutually exclusive within a guild.
// The pair is unordered; storage treats (A, B) and (B, A) as the same record.
type MutexPair struct {
	GuildID string
	RoleA   string
	RoleB   string
}

// Stats summarizes stored reaction-role state.
type Stats struct {
	GuildCount      int64
	BindingCount    int64
	AssignmentCount int64
}

// Store persists bindings, mutex pairs, permission roles, and the assignment
// counter.
//
// Transact runs fn against a transaction-scoped Store so multi-step writes
// compose; see its doc comment for the HandledError contract.
type Store interface {
	// AddBinding inserts one binding. It fails with ErrDuplicateBinding when
	// the (message, emoji, role) triple already exists.
	AddBinding(ctx context.Context, b Binding) error

	// RemoveBindings removes bindings on a message matching the given emoji
	// and/or role filters. An empty string skips that filter; at least one
	// filter is required. Returns the number of bindings removed.
	RemoveBindings(ctx context.Context, messageID, emojiKey, roleID string) (int64, error)

	// RemoveAllBindings removes every binding on the message and returns the
	// number removed.
	RemoveAllBindings(ctx context.Context, messageID string) (int64, error)

	// GetBindings returns the role ids bound to the emoji on the message,
	// in insertion order. A zero-length result is normal.
	GetBindings(ctx context.Context, messageID, emojiKey string) ([]string, error)

	// GetBindingMap returns the emoji-to-roles grouping for the whole message.
	GetBindingMap(ctx context.Context, messageID string) (BindingMap, error)

	// HasBindings reports whether the message has any bindings at all.
	HasBindings(ctx context.Context, messageID string) (bool, error)

	// BoundMessages returns the distinct message ids with bindings in the guild.
	BoundMessages(ctx context.Context, guildID string) ([]string, error)

	// AddMutexPair records two roles as mutually exclusive. It fails with
	// ErrDuplicateMutex when the pair exists in either order, and ErrSelfMutex
	// when both roles are the same.
	AddMutexPair(ctx context.Context, p MutexPair) error

	// RemoveMutexPair deletes the pair in both orderings and returns the
	// total rows removed.
	RemoveMutexPair(ctx context.Context, p MutexPair) (int64, error)

	// GetMutexPartners returns the roles exclusive with the given role,
	// searching both column orders.
	GetMutexPartners(ctx context.Context, guildID, roleID string) ([]string, error)

	// GetMutexEmojis returns the distinct emoji keys bound to any of the
	// given roles.
	GetMutexEmojis(ctx context.Context, roleIDs []string) ([]string, error)

	// AddAllowedRole authorizes a role to administer bindings for the guild.
	// It fails with ErrAlreadyExists when the role is already allowed.
	AddAllowedRole(ctx context.Context, guildID, roleID string) error

	// RemoveAllowedRole revokes the authorization and returns rows removed.
	RemoveAllowedRole(ctx context.Context, guildID, roleID string) (int64, error)

	// GetAllowedRoles returns the roles authorized to administer the guild.
	GetAllowedRoles(ctx context.Context, guildID string) ([]string, error)

	// ClearGuildData deletes all bindings, mutex pairs, and permission roles
	// for the guild. Clearing a guild with no data is a no-op, not an error.
	ClearGuildData(ctx context.Context, guildID string) error

	// IncrementAssignments adds n to the monotonic assignment counter.
	IncrementAssignments(ctx context.Context, n int64) error

	// Stats returns aggregate counts over stored state.
	Stats(ctx context.Context) (Stats, error)

	// Transact runs fn against a transaction-scoped Store. When fn returns
	// nil the transaction commits. When fn returns an error wrapped in
	// HandledError the transaction rolls back and Transact returns nil: the
	// caller has already reported the failure. Any other error rolls back
	// and propagates.
	Transact(ctx context.Context, fn func(Store) error) error
}

// HandledError wraps an error that has already been reported to the caller,
// so a transaction can roll back without the failure being handled twice.
type HandledError struct {
	Cause error
}

// Handled wraps err to abort a transaction silently.
func Handled(err error) *HandledError {
	return &HandledError{Cause: err}
}

func (e *HandledError) Error() string {
	return "handled: " + e.Cause.Error()
}

// Unwrap returns the original error.
func (e *HandledError) Unwrap() error {
	return e.Cause
}
