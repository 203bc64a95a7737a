// Command bptreedb is a single-file, single-writer relational store with
// an interactive REPL supporting insert and select (spec §6).
// Usage: bptreedb <database file>
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"bptreedb/internal/btree"
	"bptreedb/internal/repl"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Must supply a database filename")
		os.Exit(1)
	}
	path := os.Args[1]

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	tree, err := btree.Open(path, btree.Options{Logger: sugar})
	if err != nil {
		sugar.Fatalw("could not open database file", "path", path, "error", err)
	}
	defer func() {
		if err := tree.Close(); err != nil {
			sugar.Fatalw("error closing database file", "path", path, "error", err)
		}
	}()

	r := repl.New(tree, os.Stdin, os.Stdout, sugar)
	if err := r.Run(); err != nil {
		sugar.Fatalw("repl exited with error", "error", err)
	}
}
