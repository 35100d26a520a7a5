package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger-wallet/config"
	"ledger-wallet/pkg/logger"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

var stdout io.Writer = os.Stdout

// app carries what the root Before hook loaded to every subcommand.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ctx, fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	if cfg.Log.File != "" {
		log, closer, err := logger.NewWithRotation(cfg.Log.Level, cfg.Log.Pretty, cfg.Log.File, cfg.Log.MaxKB, cfg.Log.MaxRolls)
		if err != nil {
			return ctx, err
		}
		a.log, a.logCloser = log, closer
	} else {
		a.log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}
	return ctx, nil
}

func (a *app) after(ctx context.Context, cmd *cli.Command) error {
	if a.logCloser != nil {
		return a.logCloser.Close()
	}
	return nil
}

// withWallet opens the wallet stack around fn.
func (a *app) withWallet(ctx context.Context, fn func(ctx context.Context, w *wallet) error) error {
	w, err := openWallet(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Sync.StopGrace+5*time.Second)
		defer cancel()
		w.Close(closeCtx)
	}()
	return fn(ctx, w)
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Usage:   "Vault password (prompted when empty)",
		Sources: cli.EnvVars("WALLET_PASSWORD"),
	}
}

func accountFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "account",
		Aliases: []string{"a"},
		Usage:   "Account id or alias",
	}
}

func newCommand() *cli.Command {
	a := &app{}
	return &cli.Command{
		Name:   "walletd",
		Usage:  "HD ledger wallet: vault, accounts, sync and transfers",
		Before: a.before,
		After:  a.after,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("WALLET_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Poll every account until interrupted",
				Action: a.run,
			},
			{
				Name:  "init",
				Usage: "Create the vault from a new or imported mnemonic",
				Flags: []cli.Flag{
					passwordFlag(),
					&cli.StringFlag{Name: "mnemonic", Usage: "Import this mnemonic instead of generating one"},
				},
				Action: a.initVault,
			},
			{
				Name:  "account",
				Usage: "Manage accounts",
				Commands: []*cli.Command{
					{
						Name:  "create",
						Usage: "Derive the next account",
						Flags: []cli.Flag{
							passwordFlag(),
							&cli.StringFlag{Name: "alias", Usage: "Account alias"},
							&cli.StringSliceFlag{Name: "node", Usage: "Node URL (defaults to the configured nodes)"},
						},
						Action: a.createAccount,
					},
					{
						Name:   "list",
						Usage:  "List accounts",
						Action: a.listAccounts,
					},
					{
						Name:  "sync",
						Usage: "Sync one account or all of them",
						Flags: []cli.Flag{
							accountFlag(),
							&cli.BoolFlag{Name: "force", Usage: "Ignore the minimum sync interval"},
						},
						Action: a.syncAccounts,
					},
					{
						Name:   "balance",
						Usage:  "Show an account balance",
						Flags:  []cli.Flag{accountFlag()},
						Action: a.balance,
					},
					{
						Name:  "transfer",
						Usage: "Send value to an address",
						Flags: []cli.Flag{
							accountFlag(),
							passwordFlag(),
							&cli.StringFlag{Name: "to", Usage: "Destination address", Required: true},
							&cli.Uint64Flag{Name: "amount", Usage: "Amount to send", Required: true},
						},
						Action: a.transfer,
					},
				},
			},
			{
				Name:  "backup",
				Usage: "Write an encrypted snapshot to a directory, file or s3://bucket/key",
				Flags: []cli.Flag{
					passwordFlag(),
					&cli.StringFlag{Name: "destination", Aliases: []string{"d"}, Value: "./backups"},
				},
				Action: a.backup,
			},
			{
				Name:  "restore",
				Usage: "Restore a snapshot into an empty vault",
				Flags: []cli.Flag{
					passwordFlag(),
					&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true},
				},
				Action: a.restore,
			},
			{
				Name:  "nodesim",
				Usage: "Serve the in-memory ledger node over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "print-token", Usage: "Print a bearer token for this client name and exit"},
				},
				Action: a.nodesim,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "walletd: %v\n", err)
		stop()
		os.Exit(1)
	}
}
