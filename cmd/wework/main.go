package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/piccscy/wechat/internal/app"
	"github.com/piccscy/wechat/internal/config"
	"github.com/piccscy/wechat/internal/logger"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wework: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wework",
		Short:         "Customer contact toolkit for the WeCom external contact API",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSyncCmd(),
		newFollowUsersCmd(),
		newCustomersCmd(),
		newCustomerCmd(),
		newTagsCmd(),
		newMarkTagCmd(),
		newGroupChatsCmd(),
		newGroupChatCmd(),
		newGroupMsgResultCmd(),
		newUnassignedCmd(),
	)
	return root
}

func newSyncCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Publish fresh customer contact snapshots to the configured publishers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single sync pass and exit")
	return cmd
}

func runSync(parent context.Context, once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("syncer starting", "config", cfg.Redacted())

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncer, err := app.NewSyncer(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize syncer", "error", err)
		return err
	}
	defer syncer.Close()

	if once {
		if err := syncer.RunOnce(ctx); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		return nil
	}
	if err := syncer.Run(ctx); err != nil {
		return fmt.Errorf("syncer run: %w", err)
	}
	return nil
}
