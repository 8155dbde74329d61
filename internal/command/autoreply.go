package command

import "github.com/pesterhq/pester/internal/state"

// ReplyFor evaluates the auto-reply rule for an inbound guild message and
// returns the configured text when a reply should be sent. Bot authors never
// trigger a reply, and neither does an empty configured message.
func (h *Handler) ReplyFor(guild state.GuildID, author state.UserID, owner state.UserID, authorIsBot bool) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if authorIsBot || guild == 0 {
		return "", false
	}
	if !h.accessor.IsTarget(guild, author, owner) {
		return "", false
	}
	message := h.accessor.GuildConfig(guild, owner).Message
	if message == "" {
		return "", false
	}
	return message, true
}
