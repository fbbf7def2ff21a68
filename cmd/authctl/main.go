package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rosedal2/condoauth/internal/admin"
	"github.com/rosedal2/condoauth/internal/server"
	"github.com/rosedal2/condoauth/internal/server/config"
	"github.com/rosedal2/condoauth/internal/server/repositories/repomanager"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		if errors.Is(err, admin.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := "help"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	if !admin.NeedsDatabase(cmd) {
		return admin.NewTool(nil, nil, nil, os.Stdin, os.Stdout).Run(ctx, cmd, args)
	}

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	db, err := server.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	return admin.NewTool(cfg, db, repomanager.NewPostgresRepositoryManager(), os.Stdin, os.Stdout).Run(ctx, cmd, args)
}
