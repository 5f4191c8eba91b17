package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/simp-lee/bankoffice/internal/cli"
)

func main() {
	// BANKCTL_* defaults may come from a local .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal("failed to load env file: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}
