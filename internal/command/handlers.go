package command

import (
	"fmt"
	"strings"

	"github.com/pesterhq/pester/internal/state"
)

const (
	msgNoPermission = "You do not have permission to use this command."
	msgSaveFailed   = "Failed to save configuration. Please try again."

	msgAdminBot     = "Cannot add bots to the admin list."
	msgOwnerRemoval = "Cannot remove the server owner from admin list."
	msgSelfDemotion = "Are you sure you want to remove yourself as admin?\nUse the command again within 60 seconds to confirm."
	msgSelfDemoted  = "You have been removed from the admin list."

	msgTargetBot = "Cannot add bots to the target list."
)

// AdminAdd grants a user explicit admin status.
func (h *Handler) AdminAdd(req Request) Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	const name = "admin_add"

	if !h.accessor.IsAdmin(req.Guild, req.Actor, req.Owner) {
		return h.done(name, req.Guild, OutcomeDenied, private(msgNoPermission))
	}
	cfg := h.accessor.GuildConfig(req.Guild, req.Owner)

	if req.TargetIsBot {
		return h.done(name, req.Guild, OutcomeRejected, private(msgAdminBot))
	}
	if req.TargetUser == req.Owner || cfg.HasAdmin(req.TargetUser) {
		text := fmt.Sprintf("User %s is already an admin.", req.TargetUser.Mention())
		return h.done(name, req.Guild, OutcomeRejected, private(text))
	}

	cfg.AdminIDs = append(cfg.AdminIDs, req.TargetUser)
	if err := h.save(name, req.Guild); err != nil {
		return h.done(name, req.Guild, OutcomeSaveFailed, private(msgSaveFailed))
	}
	text := fmt.Sprintf("Successfully added %s as an admin.", req.TargetUser.Mention())
	return h.done(name, req.Guild, OutcomeOK, private(text))
}

// AdminRemove revokes explicit admin status. The owner can never be removed.
// Removing yourself takes two invocations: the first issues a confirmation
// prompt, a second within the confirmation window performs the removal.
func (h *Handler) AdminRemove(req Request) Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	const name = "admin_remove"

	if !h.accessor.IsAdmin(req.Guild, req.Actor, req.Owner) {
		return h.done(name, req.Guild, OutcomeDenied, private(msgNoPermission))
	}
	cfg := h.accessor.GuildConfig(req.Guild, req.Owner)

	if req.TargetUser == req.Owner {
		return h.done(name, req.Guild, OutcomeRejected, private(msgOwnerRemoval))
	}
	if !cfg.HasAdmin(req.TargetUser) {
		text := fmt.Sprintf("User %s is not an admin.", req.TargetUser.Mention())
		return h.done(name, req.Guild, OutcomeRejected, private(text))
	}

	if req.TargetUser == req.Actor {
		if !h.confirms.Check(req.Guild, req.Actor) {
			h.confirms.Request(req.Guild, req.Actor)
			return h.done(name, req.Guild, OutcomeConfirmPending, private(msgSelfDemotion))
		}
		cfg.AdminIDs, _ = state.RemoveUser(cfg.AdminIDs, req.TargetUser)
		h.confirms.Clear(req.Guild, req.Actor)
		if err := h.save(name, req.Guild); err != nil {
			return h.done(name, req.Guild, OutcomeSaveFailed, private(msgSaveFailed))
		}
		return h.done(name, req.Guild, OutcomeOK, private(msgSelfDemoted))
	}

	cfg.AdminIDs, _ = state.RemoveUser(cfg.AdminIDs, req.TargetUser)
	if err := h.save(name, req.Guild); err != nil {
		return h.done(name, req.Guild, OutcomeSaveFailed, private(msgSaveFailed))
	}
	text := fmt.Sprintf("Successfully removed %s from admin list.", req.TargetUser.Mention())
	return h.done(name, req.Guild, OutcomeOK, private(text))
}

// TargetAdd puts a user on the auto-reply target list.
func (h *Handler) TargetAdd(req Request) Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	const name = "target_add"

	if !h.accessor.IsAdmin(req.Guild, req.Actor, req.Owner) {
		return h.done(name, req.Guild, OutcomeDenied, private(msgNoPermission))
	}
	cfg := h.accessor.GuildConfig(req.Guild, req.Owner)

	if req.TargetIsBot {
		return h.done(name, req.Guild, OutcomeRejected, private(msgTargetBot))
	}
	if cfg.HasTarget(req.TargetUser) {
		text := fmt.Sprintf("User %s is already in the target list.", req.TargetUser.Mention())
		return h.done(name, req.Guild, OutcomeRejected, private(text))
	}

	cfg.TargetIDs = append(cfg.TargetIDs, req.TargetUser)
	if err := h.save(name, req.Guild); err != nil {
		return h.done(name, req.Guild, OutcomeSaveFailed, private(msgSaveFailed))
	}
	text := fmt.Sprintf("Successfully added %s to the target list.", req.TargetUser.Mention())
	return h.done(name, req.Guild, OutcomeOK, private(text))
}

// TargetRemove takes a user off the target list. Targets are never
// privilege-bearing, so no owner guard and no confirmation step.
func (h *Handler) TargetRemove(req Request) Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	const name = "target_remove"

	if !h.accessor.IsAdmin(req.Guild, req.Actor, req.Owner) {
		return h.done(name, req.Guild, OutcomeDenied, private(msgNoPermission))
	}
	cfg := h.accessor.GuildConfig(req.Guild, req.Owner)

	ids, removed := state.RemoveUser(cfg.TargetIDs, req.TargetUser)
	if !removed {
		text := fmt.Sprintf("User %s is not in the target list.", req.TargetUser.Mention())
		return h.done(name, req.Guild, OutcomeRejected, private(text))
	}

	cfg.TargetIDs = ids
	if err := h.save(name, req.Guild); err != nil {
		return h.done(name, req.Guild, OutcomeSaveFailed, private(msgSaveFailed))
	}
	text := fmt.Sprintf("Successfully removed %s from the target list.", req.TargetUser.Mention())
	return h.done(name, req.Guild, OutcomeOK, private(text))
}

// SetMessage overwrites the configured auto-reply text. An empty string
// disables auto-reply.
func (h *Handler) SetMessage(req Request) Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	const name = "setmessage"

	if !h.accessor.IsAdmin(req.Guild, req.Actor, req.Owner) {
		return h.done(name, req.Guild, OutcomeDenied, private(msgNoPermission))
	}
	cfg := h.accessor.GuildConfig(req.Guild, req.Owner)

	cfg.Message = req.Text
	if err := h.save(name, req.Guild); err != nil {
		return h.done(name, req.Guild, OutcomeSaveFailed, private(msgSaveFailed))
	}
	text := fmt.Sprintf("Successfully set the message to: %s", req.Text)
	return h.done(name, req.Guild, OutcomeOK, private(text))
}

// Info reports the guild's configuration. Anyone may ask; the response is
// still private to the invoker.
func (h *Handler) Info(req Request) Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	const name = "info"

	cfg := h.accessor.GuildConfig(req.Guild, req.Owner)

	targets := "None"
	if len(cfg.TargetIDs) > 0 {
		targets = mentionList(cfg.TargetIDs)
	}

	// The owner is admin whether or not the list says so; the display folds
	// it in once.
	admins := cfg.AdminIDs
	if req.Owner != 0 && !cfg.HasAdmin(req.Owner) {
		admins = append(append([]state.UserID{}, admins...), req.Owner)
	}
	adminText := "None"
	if len(admins) > 0 {
		adminText = mentionList(admins)
	}

	message := cfg.Message
	if message == "" {
		message = "No message set"
	}

	text := fmt.Sprintf("**Bot Targets:** %s\n\n**Bot Admins:** %s\n\n**Message:** %s", targets, adminText, message)
	return h.done(name, req.Guild, OutcomeOK, private(text))
}

func mentionList(ids []state.UserID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.Mention())
	}
	return strings.Join(parts, ", ")
}
