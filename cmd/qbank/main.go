package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/qbank/internal/extract"
	"github.com/dgallion1/qbank/internal/parser"
)

// Exit codes distinguish unreadable documents from readable ones without a
// question table.
const (
	exitError        = 1
	exitDecodeFailed = 2
	exitNoQuestions  = 3
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case parser.KindOf(err) != "":
		return exitDecodeFailed
	case errors.Is(err, extract.ErrNoQuestionTable):
		return exitNoQuestions
	default:
		return exitError
	}
}
