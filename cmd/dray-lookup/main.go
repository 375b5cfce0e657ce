package main

import (
	"fmt"
	"io"
	"os"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "topic":
		return runTopic(args[1:], stdout, stderr)
	case "bundle":
		return runBundle(args[1:], stdout, stderr)
	case "probe":
		return runProbe(args[1:], stdout, stderr)
	case "version", "--version", "-version":
		fmt.Fprintf(stdout, "dray-lookup version %s (built %s, commit %s)\n", version, buildTime, gitCommit)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: dray-lookup <command> [options]

Commands:
  topic       Print the broker that owns a topic
  bundle      Print the namespace bundle a topic belongs to
  probe       Resolve configured topics periodically and serve metrics
  version     Print version information

Run 'dray-lookup <command> --help' for more information on a command.`)
}
