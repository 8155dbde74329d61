package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// GuildID identifies a Discord guild (one tenant).
type GuildID uint64

// UserID identifies a Discord user.
type UserID uint64

// Key returns the decimal document key for the guild.
func (id GuildID) Key() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Mention formats the user as a Discord mention.
func (id UserID) Mention() string {
	return fmt.Sprintf("<@%d>", uint64(id))
}

// GuildConfig is the per-guild configuration record. AdminIDs and TargetIDs
// keep insertion order and never contain a user twice; Message empty means
// auto-reply is disabled for the guild.
type GuildConfig struct {
	AdminIDs  []UserID `json:"adminIDs"`
	TargetIDs []UserID `json:"targetIDs"`
	Message   string   `json:"message"`
}

// HasAdmin reports whether the user is in the explicit admin list.
func (c *GuildConfig) HasAdmin(id UserID) bool {
	return containsUser(c.AdminIDs, id)
}

// HasTarget reports whether the user is in the target list.
func (c *GuildConfig) HasTarget(id UserID) bool {
	return containsUser(c.TargetIDs, id)
}

func containsUser(ids []UserID, id UserID) bool {
	for _, cur := range ids {
		if cur == id {
			return true
		}
	}
	return false
}

// RemoveUser removes the first occurrence of id and reports whether it was
// present. Lists never hold duplicates, so one pass is enough.
func RemoveUser(ids []UserID, id UserID) ([]UserID, bool) {
	for i, cur := range ids {
		if cur == id {
			return append(ids[:i], ids[i+1:]...), true
		}
	}
	return ids, false
}

// Document maps decimal guild ids to their configuration. The in-memory
// document is the source of truth between saves; records are created on
// first access and never deleted.
type Document map[string]*GuildConfig

// Guild returns the record for the guild, or nil if it was never configured.
func (d Document) Guild(id GuildID) *GuildConfig {
	return d[id.Key()]
}

// ParseDocument decodes a persisted state document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// ValidateDocument reports problems a decoded document carries that the
// runtime would otherwise repair or tolerate silently: keys that are not
// decimal guild ids, nil records, zero user ids, and duplicate memberships.
func ValidateDocument(doc Document) []string {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var problems []string
	for _, key := range keys {
		if _, err := strconv.ParseUint(key, 10, 64); err != nil {
			problems = append(problems, fmt.Sprintf("guild key %q is not a decimal id", key))
		}
		cfg := doc[key]
		if cfg == nil {
			problems = append(problems, fmt.Sprintf("guild %s: record is null", key))
			continue
		}
		problems = append(problems, validateList(key, "adminIDs", cfg.AdminIDs)...)
		problems = append(problems, validateList(key, "targetIDs", cfg.TargetIDs)...)
	}
	return problems
}

func validateList(key, field string, ids []UserID) []string {
	var problems []string
	seen := make(map[UserID]bool, len(ids))
	for _, id := range ids {
		if id == 0 {
			problems = append(problems, fmt.Sprintf("guild %s: %s contains a zero user id", key, field))
			continue
		}
		if seen[id] {
			problems = append(problems, fmt.Sprintf("guild %s: %s contains %d more than once", key, field, uint64(id)))
		}
		seen[id] = true
	}
	return problems
}
