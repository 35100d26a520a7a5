package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/internal/service"
	"ledger-wallet/pkg/apperror"

	"github.com/urfave/cli/v3"
)

func (a *app) run(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		if err := w.checkDependencies(ctx); err != nil {
			return err
		}

		sub := w.events.Subscribe()
		defer w.events.Unsubscribe(sub)
		go func() {
			for e := range sub.C {
				a.log.Info().
					Str("kind", string(e.Kind)).
					Str("account_id", e.AccountID).
					Uint64("seq", e.Seq).
					RawJSON("payload", e.Payload).
					Msg("wallet event")
			}
		}()

		if err := w.manager.Start(ctx); err != nil {
			return err
		}
		a.log.Info().Int("accounts", len(w.manager.Accounts())).Msg("wallet running")

		<-ctx.Done()
		a.log.Info().Msg("shutting down")
		return nil
	})
}

func (a *app) initVault(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		state, err := w.vault.State(ctx)
		if err != nil {
			return err
		}
		if state != domain.VaultEmpty {
			return apperror.ErrAlreadyInitialized()
		}

		mnemonic := cmd.String("mnemonic")
		generated := mnemonic == ""
		if generated {
			if mnemonic, err = w.vault.GenerateMnemonic(); err != nil {
				return err
			}
		}
		password, err := promptPassword(stdout, cmd.String("password"), true)
		if err != nil {
			return err
		}
		if err := w.vault.SetMnemonic(ctx, mnemonic, password); err != nil {
			return err
		}

		if generated {
			fmt.Fprintf(stdout, "Write down your mnemonic and keep it offline:\n\n  %s\n\n", mnemonic)
		}
		fmt.Fprintln(stdout, "Vault initialised.")
		return nil
	})
}

func (a *app) createAccount(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		nodes := nodesFromConfig(a.cfg.Nodes)
		if urls := cmd.StringSlice("node"); len(urls) > 0 {
			nodes = nodes[:0]
			for _, u := range urls {
				nodes = append(nodes, domain.NodeConfig{URL: u})
			}
		}

		password, err := promptPassword(stdout, cmd.String("password"), false)
		if err != nil {
			return err
		}
		if err := w.unlock(ctx, password); err != nil {
			return err
		}

		h, err := w.manager.CreateAccount(ctx, ports.CreateAccountRequest{
			Alias: cmd.String("alias"),
			Nodes: nodes,
		})
		if err != nil {
			return err
		}
		addr, err := h.LatestAddress()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Created account %s (%s), index %d\nDeposit address: %s\n",
			h.Alias(), h.ID(), h.Index(), addr.Address)
		return nil
	})
}

func (a *app) listAccounts(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tALIAS\tID\tAVAILABLE\tTOTAL")
		for _, h := range w.manager.Accounts() {
			b := h.Balance()
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", h.Index(), h.Alias(), h.ID(), b.Available, b.Total)
		}
		return tw.Flush()
	})
}

func (a *app) syncAccounts(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		opts := domain.SyncOptions{Force: cmd.Bool("force")}

		if ref := cmd.String("account"); ref != "" {
			h, err := findAccount(w.manager, ref)
			if err != nil {
				return err
			}
			report, err := h.Sync(ctx, opts)
			if err != nil {
				return err
			}
			printReport(h.Alias(), report)
			return nil
		}

		var failed int
		for _, r := range w.manager.SyncAll(ctx, opts) {
			if r.Err != nil {
				failed++
				fmt.Fprintf(stdout, "%s: %v\n", r.AccountID, r.Err)
				continue
			}
			printReport(r.AccountID, r.Report)
		}
		if failed > 0 {
			return fmt.Errorf("%d account(s) failed to sync", failed)
		}
		return nil
	})
}

func printReport(name string, r *domain.SyncReport) {
	if r.Skipped {
		fmt.Fprintf(stdout, "%s: synced recently, skipped\n", name)
		return
	}
	fmt.Fprintf(stdout, "%s: %d addresses scanned, %d new messages, %d confirmation changes\n",
		name, r.AddressesScanned, len(r.NewMessages), len(r.ConfirmationChanges))
}

func (a *app) balance(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		h, err := findAccount(w.manager, cmd.String("account"))
		if err != nil {
			return err
		}
		b := h.Balance()
		fmt.Fprintf(stdout, "total:     %d\navailable: %d\nincoming:  %d\noutgoing:  %d\n",
			b.Total, b.Available, b.Incoming, b.Outgoing)
		return nil
	})
}

func (a *app) transfer(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		h, err := findAccount(w.manager, cmd.String("account"))
		if err != nil {
			return err
		}
		password, err := promptPassword(stdout, cmd.String("password"), false)
		if err != nil {
			return err
		}
		if err := w.unlock(ctx, password); err != nil {
			return err
		}

		msg, err := h.Transfer(ctx, ports.TransferRequest{
			Address: cmd.String("to"),
			Amount:  cmd.Uint64("amount"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Submitted message %s\n", msg.ID)
		return nil
	})
}

func (a *app) backup(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		password, err := promptPassword(stdout, cmd.String("password"), false)
		if err != nil {
			return err
		}
		dest, err := w.manager.Backup(ctx, cmd.String("destination"), password)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Backup written to %s\n", dest)
		return nil
	})
}

func (a *app) restore(ctx context.Context, cmd *cli.Command) error {
	return a.withWallet(ctx, func(ctx context.Context, w *wallet) error {
		password, err := promptPassword(stdout, cmd.String("password"), false)
		if err != nil {
			return err
		}
		if err := w.manager.Restore(ctx, cmd.String("source"), password); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Restored %d account(s)\n", len(w.manager.Accounts()))
		return nil
	})
}

// findAccount resolves ref as an id, then as an alias. An empty ref picks
// the only account when there is exactly one.
func findAccount(m *service.AccountManager, ref string) (*service.AccountHandle, error) {
	if ref == "" {
		accounts := m.Accounts()
		if len(accounts) != 1 {
			return nil, apperror.Validation("--account is required unless the wallet holds exactly one account")
		}
		return accounts[0], nil
	}
	if h, err := m.Account(ref); err == nil {
		return h, nil
	}
	return m.AccountByAlias(ref)
}
