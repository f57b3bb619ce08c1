package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/doeshing/aishell-go/internal/app"
	"github.com/doeshing/aishell-go/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.BuildContainer(ctx, app.Options{Verbose: isVerbose()})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return cli.ExitCode(err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}()

	root := cli.NewRootCmd(container)
	if err := root.ExecuteContext(ctx); err != nil {
		if !cli.Silent(err) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return cli.ExitCode(err)
	}
	return 0
}

func isVerbose() bool {
	return strings.EqualFold(os.Getenv("AISHELL_DEBUG"), "1") || strings.EqualFold(os.Getenv("AISHELL_DEBUG"), "true")
}
