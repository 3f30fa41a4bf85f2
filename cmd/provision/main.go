package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/subosito/gotenv"

	"github.com/ran-group/shiftdesk/internal/infra/db"
	"github.com/ran-group/shiftdesk/internal/infra/logger"
	"github.com/ran-group/shiftdesk/internal/provision"
)

const usage = `usage: provision <command> [flags]

commands:
  create     bulk-create accounts from an xlsx roster
  reconcile  find (and optionally delete) identities without a profile
  export     write all profiles to an xlsx file
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "provision:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = gotenv.Load() // .env is optional, real env wins

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("command required")
	}
	command := os.Args[1]

	dsn := os.Getenv("APP_POSTGRES_DSN")
	if dsn == "" {
		return fmt.Errorf("APP_POSTGRES_DSN is required")
	}

	log := logger.New(os.Getenv("APP_ENV"))
	ctx := context.Background()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	svc := provision.NewService(pool, log)

	switch command {
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		roster := fs.String("roster", "", "path to the xlsx roster")
		approve := fs.Bool("approve", false, "approve created accounts immediately")
		approver := fs.String("approver", "provisioning", "approver name recorded on --approve")
		_ = fs.Parse(os.Args[2:])
		if *roster == "" {
			return fmt.Errorf("--roster is required")
		}
		rows, err := provision.ReadRoster(*roster)
		if err != nil {
			return err
		}
		return svc.CreateAccounts(ctx, rows, *approve, *approver)

	case "reconcile":
		fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
		fix := fs.Bool("fix", false, "delete orphaned identities instead of only reporting them")
		_ = fs.Parse(os.Args[2:])
		n, err := svc.Reconcile(ctx, *fix)
		if err != nil {
			return err
		}
		log.Info("reconcile finished", "orphans", n, "fixed", *fix)
		return nil

	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		out := fs.String("out", "profiles.xlsx", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		return svc.Export(ctx, *out)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
