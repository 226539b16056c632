// Package cli exposes transfers, recoveries and the chain registry as commands
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/speedrun-hq/speedrun-bridge/pkg/amount"
	"github.com/speedrun-hq/speedrun-bridge/pkg/bridge"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/config"
	"github.com/speedrun-hq/speedrun-bridge/pkg/health"
	"github.com/speedrun-hq/speedrun-bridge/pkg/models"
	"github.com/speedrun-hq/speedrun-bridge/pkg/status"
)

// Loader builds the app once a command runs
type Loader func() (*App, error)

// NewRootCommand creates the command tree
func NewRootCommand(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "speedrun-bridge",
		Short:         "Move USDC between chains with CCTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(transferCommand(load), recoverCommand(load), chainsCommand(load))
	return root
}

func transferCommand(load Loader) *cobra.Command {
	var from, to, value, recipient string

	c := &cobra.Command{
		Use:   "transfer",
		Short: "Burn USDC on the source chain and mint it on the destination chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			wallets, err := app.Wallets()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tracker := newTracker(out, models.NewSession())
			result, err := app.Orchestrator.Transfer(cmd.Context(), models.TransferIntent{
				SourceChain: chains.ChainID(from),
				DestChain:   chains.ChainID(to),
				Amount:      value,
				Recipient:   recipient,
				Wallets:     wallets,
			}, tracker.onStep)
			printResult(out, result)
			return err
		},
	}

	flags := c.Flags()
	flags.StringVar(&from, "from", "", "source chain id")
	flags.StringVar(&to, "to", "", "destination chain id")
	flags.StringVar(&value, "amount", "", "USDC amount, up to 6 decimals")
	flags.StringVar(&recipient, "recipient", "", "recipient address on the destination chain")
	for _, name := range []string{"from", "to", "amount", "recipient"} {
		_ = c.MarkFlagRequired(name)
	}
	return c
}

func recoverCommand(load Loader) *cobra.Command {
	var from, to, txID, value, recipient string

	c := &cobra.Command{
		Use:   "recover",
		Short: "Mint the USDC of a burn that never completed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			wallets, err := app.Wallets()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tracker := newTracker(out, models.NewRecoverySession(txID))
			result, err := app.Orchestrator.Recover(cmd.Context(), models.RecoveryIntent{
				SourceTxID:        txID,
				SourceChain:       chains.ChainID(from),
				DestChain:         chains.ChainID(to),
				Amount:            value,
				IntendedRecipient: recipient,
				Wallets:           wallets,
			}, tracker.onStep)
			printResult(out, result)
			return err
		},
	}

	flags := c.Flags()
	flags.StringVar(&from, "from", "", "source chain id of the burn")
	flags.StringVar(&to, "to", "", "destination chain id")
	flags.StringVar(&txID, "tx", "", "burn transaction hash or signature")
	flags.StringVar(&value, "amount", "", "expected USDC amount, informational")
	flags.StringVar(&recipient, "recipient", "", "expected recipient, informational")
	for _, name := range []string{"from", "to", "tx"} {
		_ = c.MarkFlagRequired(name)
	}
	return c
}

func chainsCommand(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List the supported chains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tDOMAIN\tRPC")
			for _, d := range app.Resolver.Chains() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Name, d.Category, d.Domain, d.RPCEndpoint)
			}
			return w.Flush()
		},
	}
}

// tracker mirrors the orchestrator session from progress events
type tracker struct {
	out     io.Writer
	session *models.Session
}

func newTracker(out io.Writer, session *models.Session) *tracker {
	return &tracker{out: out, session: session}
}

func (t *tracker) onStep(step models.ProtocolStep) {
	_ = t.session.ApplyStep(step)

	line := fmt.Sprintf("%-16s %-8s", step.Name, step.State)
	if step.TxHash != "" {
		line += " " + step.TxHash
	}
	fmt.Fprintf(t.out, "%s  [%s]\n", line, status.Project(*t.session).Current)
}

func printResult(out io.Writer, result *models.BridgeResult) {
	if result == nil {
		return
	}

	display := status.Project(result.Session)
	fmt.Fprintln(out)
	for _, m := range display.Milestones {
		mark := " "
		if m.Reached {
			mark = "x"
		}
		fmt.Fprintf(out, "[%s] %s\n", mark, m.Label)
	}
	fmt.Fprintf(out, "Status: %s\n", display.Current)
	if display.Message != "" {
		fmt.Fprintf(out, "%s\n", display.Message)
	}
	if result.Amount != nil {
		fmt.Fprintf(out, "Amount: %s USDC\n", amount.ToDecimalString(result.Amount, amount.Decimals))
	}
	if result.Recipient != "" {
		fmt.Fprintf(out, "Recipient: %s on %s\n", result.Recipient, result.Dest.ID)
	}
	if result.Session.SourceTxHash != "" {
		fmt.Fprintf(out, "Source tx: %s\n", result.Session.SourceTxHash)
	}
	if result.Session.DestTxHash != "" {
		fmt.Fprintf(out, "Destination tx: %s\n", result.Session.DestTxHash)
	}
}

// Execute runs the command line with configuration from the environment
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var app *App
	load := func() (*App, error) {
		if app != nil {
			return app, nil
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		log := NewLogger(cfg.LoggerConfig)
		app, err = NewApp(cfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.MetricsPort != "" {
			server := health.NewServer(cfg.MetricsPort, app.Resolver, app.Breaker, cfg.MetricsAPIKey, log)
			go func() {
				if err := server.Start(ctx); err != nil {
					log.Error("Health server error: %v", err)
				}
			}()
		}
		return app, nil
	}

	if err := NewRootCommand(load).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		// a failed step means on-chain work may have happened
		var stepErr *bridge.StepError
		if errors.As(err, &stepErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
