package state

import "log/slog"

// Saver persists a document. The accessor uses it for best-effort saves when
// it repairs a record on read.
type Saver interface {
	Save(doc Document) error
}

// Accessor hands out per-guild records, creating them on first access and
// repairing the owner's admin membership on every access. It is not safe for
// concurrent use; callers serialize around it.
type Accessor struct {
	doc    Document
	saver  Saver
	logger *slog.Logger
}

func NewAccessor(doc Document, saver Saver, logger *slog.Logger) *Accessor {
	if doc == nil {
		doc = Document{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Accessor{doc: doc, saver: saver, logger: logger}
}

// Document returns the live document backing the accessor.
func (a *Accessor) Document() Document {
	return a.doc
}

// ReplaceDocument swaps in a freshly loaded document. Existing records are
// dropped; the caller owns making that safe.
func (a *Accessor) ReplaceDocument(doc Document) {
	if doc == nil {
		doc = Document{}
	}
	a.doc = doc
}

// GuildConfig returns the guild's record, creating it if absent. ownerID is
// the guild owner when known, or zero when the caller has no owner in hand
// (Discord never issues a zero snowflake). A known owner missing from an
// existing record is appended and the repair saved best-effort: a failed
// save is logged only, since the in-memory record is already correct and the
// next successful mutation persists it.
func (a *Accessor) GuildConfig(guildID GuildID, ownerID UserID) *GuildConfig {
	key := guildID.Key()
	cfg, ok := a.doc[key]
	if !ok || cfg == nil {
		admins := []UserID{}
		if ownerID != 0 {
			admins = append(admins, ownerID)
			a.logger.Info("guild_initialized",
				slog.String("guild", key),
				slog.Uint64("owner", uint64(ownerID)),
			)
		}
		cfg = &GuildConfig{AdminIDs: admins, TargetIDs: []UserID{}}
		a.doc[key] = cfg
		return cfg
	}

	if ownerID != 0 && !cfg.HasAdmin(ownerID) {
		cfg.AdminIDs = append(cfg.AdminIDs, ownerID)
		a.logger.Info("guild_owner_repaired",
			slog.String("guild", key),
			slog.Uint64("owner", uint64(ownerID)),
		)
		if a.saver != nil {
			if err := a.saver.Save(a.doc); err != nil {
				a.logger.Error("guild_repair_save_failed",
					slog.String("guild", key),
					slog.Any("err", err),
				)
			}
		}
	}
	return cfg
}

// IsAdmin reports whether the user may mutate the guild's configuration.
// The owner is always an admin, before any record exists and regardless of
// the explicit list.
func (a *Accessor) IsAdmin(guildID GuildID, userID, ownerID UserID) bool {
	if ownerID != 0 && userID == ownerID {
		return true
	}
	return a.GuildConfig(guildID, ownerID).HasAdmin(userID)
}

// IsTarget reports whether the user is subject to auto-reply in the guild.
// Unlike admin status there is no owner bypass.
func (a *Accessor) IsTarget(guildID GuildID, userID, ownerID UserID) bool {
	return a.GuildConfig(guildID, ownerID).HasTarget(userID)
}
