package main

import (
	"admin_gate/internal/config"
	"admin_gate/internal/dataType"
	"admin_gate/internal/server"
	"admin_gate/internal/utils"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var basePath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin_gate",
		Short:         "IP allow-list gate for administrative interfaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&basePath, "prefix", "", "Config file base path")
	rootCmd.AddCommand(serveCmd(), checkCmd(), lintCmd(), seedCmd(), resetCmd())
	return rootCmd
}

func loadConfig() (*config.MainConfig, error) {
	if err := config.LoadEnvFile(basePath); err != nil {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}
	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the auth subrequest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logs := utils.NewManager(cfg.LogPath)
			utils.SetDefault(logs)
			defer logs.Sync()

			ruleSet, err := config.LoadRules(cfg.RulePath)
			if err != nil {
				return fmt.Errorf("load rules failed: %w", err)
			}

			srv := server.NewServer(cfg, ruleSet, config.EnabledOverrideFromEnv(config.ForceEnvName))
			log.Printf("Ready to start server on port %s", cfg.Port)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return srv.ListenAndServe(ctx)
			})
			g.Go(func() error {
				reloadOnHangup(ctx, srv)
				return nil
			})
			g.Go(func() error {
				dataType.StartDenyCounterGC(srv.Denials(), time.Minute, ctx.Done())
				return nil
			})

			if err := g.Wait(); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			log.Println("Server stopped")
			return nil
		},
	}
}

func reloadOnHangup(ctx context.Context, srv *server.Server) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-hup:
			if err := srv.Reload(); err != nil {
				log.Printf("reload failed, keeping previous rules: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <ip>",
		Short: "Evaluate an address against the configured lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ruleSet, err := config.LoadRules(cfg.RulePath)
			if err != nil {
				return fmt.Errorf("load rules failed: %w", err)
			}
			gate := server.NewGate(cfg, func() *config.RuleSet { return ruleSet }, config.EnabledOverrideFromEnv(config.ForceEnvName))
			decision := gate.CheckAccess(dataType.UserRequest{RemoteIP: args[0]}, ruleSet)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", args[0], decision.Get(), decision.Reason())
			return nil
		},
	}
}

func lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Print the canonical allow list and the entries that would be dropped",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ruleSet, err := config.LoadRules(cfg.RulePath)
			if err != nil {
				return fmt.Errorf("load rules failed: %w", err)
			}
			gate := server.NewGate(cfg, func() *config.RuleSet { return ruleSet }, nil)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "# enabled: %t\n", ruleSet.Enabled)
			fmt.Fprintf(out, "# allow list (%d)\n%s", len(ruleSet.AllowList), utils.FormatRules(ruleSet.AllowList))
			required := gate.RequiredRules()
			fmt.Fprintf(out, "# required (%d)\n%s", len(required), utils.FormatRules(required))
			for _, line := range ruleSet.Dropped {
				fmt.Fprintf(out, "# dropped: %q\n", line)
			}
			_, droppedRequired := utils.ParseRuleList(ruleSet.RequiredIPs)
			for _, line := range droppedRequired {
				fmt.Fprintf(out, "# dropped required: %q\n", line)
			}
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <ip>",
		Short: "Add an address to the allow list and store the gate disabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.SeedAllowList(cfg.RulePath, args[0]); err != nil {
				return err
			}
			utils.LogSystem(zapcore.InfoLevel, "seeded allow list", args[0])
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the stored allow list and gate state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return config.ClearRules(cfg.RulePath)
		},
	}
}
