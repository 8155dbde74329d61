package app

import (
	"fmt"
	"os"
)

var (
	version   = "0.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func Main(args []string) int {
	if len(args) < 2 {
		printHelp()
		return 2
	}

	switch args[1] {
	case "run":
		return run(args[2:])
	case "state":
		return stateCmd(args[2:])
	case "version":
		return versionCmd(args[2:])
	case "help", "-h", "--help":
		printHelp()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[1])
		printHelp()
		return 2
	}
}

func printHelp() {
	fmt.Fprintln(os.Stdout, "pester")
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Usage:")
	fmt.Fprintln(os.Stdout, "  pester run [--state ./state.json] [--pid-file ./pester.pid] [--ops-addr 127.0.0.1:9120] [--watch] [--log-level info] [--dotenv ./.env]")
	fmt.Fprintln(os.Stdout, "  pester state validate --state ./state.json [--format json|text]")
	fmt.Fprintln(os.Stdout, "  pester state show --state ./state.json")
	fmt.Fprintln(os.Stdout, "  pester version [--long] [--json]")
}
