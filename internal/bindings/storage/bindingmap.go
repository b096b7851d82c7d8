package storage

// BindingGroup holds every role bound to one emoji on a message.
type BindingGroup struct {
	EmojiKey string
	RoleIDs  []string
}

// BindingMap is the emoji-to-roles grouping for one message. An emoji may
// bind many roles and a role may appear under many emoji, so the shape is an
// explicit multimap rather than a plain map.
type BindingMap []BindingGroup

// Has reports whether the map binds the given emoji to the given role.
func (m BindingMap) Has(emojiKey, roleID string) bool {
	for _, g := range m {
		if g.EmojiKey != emojiKey {
			continue
		}
		for _, r := range g.RoleIDs {
			if r == roleID {
				return true
			}
		}
	}
	return false
}

// HasEmoji reports whether any role is bound to the given emoji.
func (m BindingMap) HasEmoji(emojiKey string) bool {
	for _, g := range m {
		if g.EmojiKey == emojiKey && len(g.RoleIDs) > 0 {
			return true
		}
	}
	return false
}

// Roles returns the roles bound to the given emoji, or nil.
func (m BindingMap) Roles(emojiKey string) []string {
	for _, g := range m {
		if g.EmojiKey == emojiKey {
			return g.RoleIDs
		}
	}
	return nil
}

// Emojis returns the emoji keys in grouping order.
func (m BindingMap) Emojis() []string {
	keys := make([]string, 0, len(m))
	for _, g := range m {
		keys = append(keys, g.EmojiKey)
	}
	return keys
}

// Pairs flattens the grouping into (emoji, role) pairs.
func (m BindingMap) Pairs() [][2]string {
	var pairs [][2]string
	for _, g := range m {
		for _, r := range g.RoleIDs {
			pairs = append(pairs, [2]string{g.EmojiKey, r})
		}
	}
	return pairs
}

// Len returns the total number of (emoji, role) pairs.
func (m BindingMap) Len() int {
	n := 0
	for _, g := range m {
		n += len(g.RoleIDs)
	}
	return n
}

// Diff returns the pairs present in m but absent from other.
func (m BindingMap) Diff(other BindingMap) [][2]string {
	var missing [][2]string
	for _, p := range m.Pairs() {
		if !other.Has(p[0], p[1]) {
			missing = append(missing, p)
		}
	}
	return missing
}
