package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/freightline/comms/internal/config"
	"github.com/freightline/comms/internal/db"
	"github.com/freightline/comms/internal/gateway"
	"github.com/freightline/comms/internal/models"
	"github.com/freightline/comms/internal/notify"
	"github.com/freightline/comms/internal/ops"
	"github.com/freightline/comms/internal/proposal"
	"github.com/freightline/comms/internal/session"
	"github.com/spf13/cobra"
)

// RefusalConfirmType is the proposal type whose acceptance confirms a
// delivery refusal and must be relayed to the ops channel.
const RefusalConfirmType = "DELIVERY_REFUSAL_CONFIRM"

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the comms gateway and background workers",
		Long:  "Starts the HTTP/WebSocket gateway, the proposal expiry sweeper, and the scheduled activity digest. Blocks until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}

	var notifier *ops.SlackNotifier
	if cfg.Ops.SlackToken != "" {
		notifier, err = ops.NewSlackNotifier(ops.SlackOpts{
			BotToken:  cfg.Ops.SlackToken,
			ChannelID: cfg.Ops.SlackChannel,
		})
		if err != nil {
			return fmt.Errorf("ops notifier: %w", err)
		}
		fmt.Fprintf(out, "Ops notifications -> Slack channel %s\n", cfg.Ops.SlackChannel)
	}

	sessions := session.NewRegistry()
	hub := gateway.NewHub(sessions)
	dispatcher := notify.NewDispatcher(sessions, hub)
	registry := proposal.NewRegistry(gormDB)

	engine, err := proposal.NewEngine(proposal.EngineOpts{
		DB:         gormDB,
		Registry:   registry,
		Dispatcher: dispatcher,
		Hooks:      responseHooks(notifier),
	})
	if err != nil {
		return err
	}

	sweeper, err := proposal.NewSweeper(engine, time.Duration(cfg.Sweep.IntervalSeconds)*time.Second)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	if cfg.Sweep.DigestSchedule != "" {
		go func() {
			var opsNotifier proposal.OpsNotifier
			if notifier != nil {
				opsNotifier = notifier
			}
			if err := proposal.RunDigest(ctx, gormDB, cfg.Sweep.DigestSchedule, opsNotifier); err != nil {
				log.Printf("serve: digest: %v", err)
			}
		}()
	}

	return gateway.Start(ctx, gateway.StartOpts{
		Deps: gateway.Deps{
			DB:         gormDB,
			Engine:     engine,
			Sessions:   sessions,
			Dispatcher: dispatcher,
			Hub:        hub,
		},
		Port: cfg.HTTP.Port,
		Out:  out,
	})
}

// responseHooks builds the per-type post-response callback table. The engine
// stays closed to type-specific business logic; anything a type needs to do
// after resolution is registered here.
func responseHooks(notifier *ops.SlackNotifier) map[string]proposal.ResponseHook {
	if notifier == nil {
		return nil
	}
	return map[string]proposal.ResponseHook{
		RefusalConfirmType: func(ctx context.Context, p *models.Proposal) error {
			if p.Status != proposal.StatusAccepted {
				return nil
			}
			return notifier.Notify(ctx,
				"Delivery refusal confirmed",
				fmt.Sprintf("Proposal %s: recipient %s confirmed refusal (%s)", p.ID, p.RecipientID, p.ResultData))
		},
	}
}
