package app

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pesterhq/pester/internal/state"
)

func stateCmd(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "missing subcommand: validate | show")
		return 2
	}

	switch args[0] {
	case "validate":
		return stateValidate(args[1:], os.Stdout, os.Stderr)
	case "show":
		return stateShow(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "unknown state subcommand: %s\n", args[0])
		return 2
	}
}

type stateValidationResult struct {
	OK       bool     `json:"ok"`
	Guilds   int      `json:"guilds"`
	Problems []string `json:"problems,omitempty"`
}

func stateValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("state validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	statePath := fs.String("state", "./state.json", "path to the state file")
	format := fs.String("format", "json", "output format: json|text")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	data, err := os.ReadFile(*statePath)
	if err != nil {
		return stateValidateEmit(stdout, stderr, *format, stateValidationResult{
			OK:       false,
			Problems: []string{err.Error()},
		})
	}

	doc, err := state.ParseDocument(data)
	if err != nil {
		return stateValidateEmit(stdout, stderr, *format, stateValidationResult{
			OK:       false,
			Problems: []string{err.Error()},
		})
	}

	problems := state.ValidateDocument(doc)
	return stateValidateEmit(stdout, stderr, *format, stateValidationResult{
		OK:       len(problems) == 0,
		Guilds:   len(doc),
		Problems: problems,
	})
}

func stateValidateEmit(stdout, stderr io.Writer, format string, res stateValidationResult) int {
	out := stdout
	code := 0
	if !res.OK {
		out = stderr
		code = 1
	}

	if format == "text" {
		if res.OK {
			fmt.Fprintf(out, "ok (%d guilds)\n", res.Guilds)
			return code
		}
		for _, p := range res.Problems {
			fmt.Fprintln(out, p)
		}
		return code
	}

	enc := json.NewEncoder(out)
	if err := enc.Encode(res); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return code
}

func stateShow(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("state show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	statePath := fs.String("state", "./state.json", "path to the state file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	data, err := os.ReadFile(*statePath)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	doc, err := state.ParseDocument(data)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cfg := doc[key]
		if cfg == nil {
			continue
		}
		message := cfg.Message
		if message == "" {
			message = "(none)"
		}
		fmt.Fprintf(stdout, "guild %s: admins=%d targets=%d message=%s\n",
			key, len(cfg.AdminIDs), len(cfg.TargetIDs), message)
	}
	fmt.Fprintf(stdout, "%d guilds\n", len(doc))
	return 0
}
