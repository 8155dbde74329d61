// Command pester runs the Pester Discord bot.
//
// Pester keeps a per-server access-control and auto-reply configuration and
// answers every message from configured target users with the configured
// text.
//
// Install:
//
//	go install github.com/pesterhq/pester/cmd/pester@latest
//
// Usage:
//
//	pester run --state ./state.json
package main
