// ABOUTME: Entry point for crateforge: routes to the analyze/sequence/migrate subcommands
// ABOUTME: Grounded on the teacher's main.go flag parsing and signal-driven cancellation style

// Package main provides the crateforge CLI: analyze a folder of audio
// files into cached feature records, sequence them into a playlist with
// one of the ten closed strategies, or migrate an existing cache to the
// current schema version.
package main

import (
	"fmt"
	"log"
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		printUsage()

		return 1
	}

	var err error

	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "sequence":
		err = runSequence(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()

		return 0
	default:
		fmt.Printf("unknown command %q\n\n", os.Args[1])
		printUsage()

		return 1
	}

	if err != nil {
		log.Printf("crateforge: %v", err)

		return 1
	}

	return 0
}

func printUsage() {
	fmt.Println("Usage: crateforge <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  analyze   analyze a folder of audio files and populate the cache")
	fmt.Println("  sequence  sequence cached tracks into a playlist")
	fmt.Println("  migrate   migrate an existing cache to the current schema version")
}

// isTTY reports whether f is attached to a terminal (teacher's cli.go
// pattern, reused here to decide whether to animate progress output).
func isTTY(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}
