// Command glrtrace parses a file against the built-in arithmetic grammar and
// prints the resulting tree, grounded on the teacher's own flag-based
// cmd/ts2go CLI pattern (ambient developer tooling around the parsing core,
// SPEC_FULL.md's Supplemented CLI surface).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/odvcencio/gotreesitter/gotreesitter"
)

func main() {
	trace := flag.Bool("trace", false, "print the PARSE debug log alongside the tree")
	snapshots := flag.Bool("snapshots", false, "capture a stack-graph snapshot each iteration (implies -trace)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: glrtrace [-trace] [-snapshots] <file>")
		os.Exit(2)
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "glrtrace:", err)
		os.Exit(1)
	}

	lang := gotreesitter.ArithmeticLanguage()
	parser := gotreesitter.NewParser(lang)

	var debugger *gotreesitter.Debugger
	if *trace || *snapshots {
		debugger = gotreesitter.NewDebugger(gologadapter.New())
		debugger.EnableSnapshots(*snapshots)
		parser.SetDebugger(debugger)
	}

	tree, err := parser.Parse(source, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "glrtrace: parse failed:", err)
		os.Exit(1)
	}

	fmt.Println(gotreesitter.Dump(tree))

	if debugger != nil {
		fmt.Fprintf(os.Stderr, "glrtrace: %d driver iterations\n", debugger.Iterations())
		if *snapshots {
			fmt.Fprintln(os.Stderr, debugger.LastGraph())
		}
	}
}
