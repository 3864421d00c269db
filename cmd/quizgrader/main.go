// cmd/quizgrader/main.go
//
// quizgrader grades PDF quiz submissions against a course roster. Running
// it with no subcommand opens the terminal grader in the current folder;
// the subcommands script the same session for batch work.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
