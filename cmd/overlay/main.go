package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Supported subcommands:
// - fetch:    Download and cache the raw traffic dataset
// - match:    Run the matching pipeline against cached/fresh data
// - run:      Fetch if needed, then match
// - validate: Check the configured inputs are present and readable

type commonFlags struct {
	cmd       *flag.FlagSet
	env       *string
	configDir *string
}

func newCommonFlags(name string) commonFlags {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)

	return commonFlags{
		cmd:       cmd,
		env:       cmd.String("env", "", "config name to load (<env>.yaml, default config.yaml)"),
		configDir: cmd.String("config", "", "extra directory to search for the config file"),
	}
}

func (f commonFlags) searchPaths() []string {
	if *f.configDir == "" {
		return nil
	}

	return []string{*f.configDir}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runSubcommand(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSubcommand(ctx context.Context) error {
	flags := newCommonFlags(os.Args[1])

	switch os.Args[1] {
	case "fetch":
		if err := flags.cmd.Parse(os.Args[2:]); err != nil {
			return errors.Wrap(err, "failed to parse fetch flags")
		}

		return runFetch(ctx, flags)
	case "match":
		if err := flags.cmd.Parse(os.Args[2:]); err != nil {
			return errors.Wrap(err, "failed to parse match flags")
		}

		return runMatch(ctx, flags)
	case "run":
		if err := flags.cmd.Parse(os.Args[2:]); err != nil {
			return errors.Wrap(err, "failed to parse run flags")
		}

		return runAll(ctx, flags)
	case "validate":
		if err := flags.cmd.Parse(os.Args[2:]); err != nil {
			return errors.Wrap(err, "failed to parse validate flags")
		}

		return runValidate(flags)
	default:
		printUsage()

		return errors.New("unknown subcommand")
	}
}

func printUsage() {
	fmt.Println("Usage: overlay <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  fetch       Download and cache the raw traffic dataset")
	fmt.Println("  match       Match routes against road traffic and rebuild route_traffic")
	fmt.Println("  run         Fetch if needed, then match")
	fmt.Println("  validate    Check the configured inputs are present")
	fmt.Println("")
	fmt.Println("Use 'overlay <command> -h' for more information about a command.")
}
