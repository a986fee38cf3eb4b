package commands

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/logger"
)

// WatchCmd watches the trigger surface and runs the pipeline on changes.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the trigger surface and run the pipeline on changes",
	Long: `Watch the pin file, the pipeline configuration, and the trigger
definition. When any of them changes, wait for the settle period and then
execute a full pipeline run.

Runs triggered while a previous run is still in flight are skipped; the
next change after it finishes triggers again. The trigger definition may
narrow the platform matrix for watched runs.

Examples:
  bindsync watch
  bindsync watch --run-on-start`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		trigger, err := config.LoadTriggerDefinition(cfg.Watch.TriggerFile)
		if err != nil {
			return err
		}

		platforms := cfg.Platforms
		if len(trigger.Platforms) > 0 {
			platforms = trigger.Platforms
		}

		log := logger.ForComponent(logger.Logger, "watch")
		debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
		settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second

		// Without an explicit --config the file viper resolved is watched
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = config.GetViper().ConfigFileUsed()
		}
		// The trigger definition is optional, so it is only watched when
		// it exists; LoadTriggerDefinition already tolerated its absence
		watchPaths := []string{cfg.Source.PinFile, configPath}
		if _, statErr := os.Stat(cfg.Watch.TriggerFile); statErr == nil {
			watchPaths = append(watchPaths, cfg.Watch.TriggerFile)
		}
		watcher, err := config.NewChangeWatcher(trigger, debounce, watchPaths...)
		if err != nil {
			return err
		}
		defer watcher.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var inFlight atomic.Bool
		runOnce := func(reason string) {
			if !inFlight.CompareAndSwap(false, true) {
				log.Infow("Run already in flight, skipping trigger", "reason", reason)
				return
			}
			defer inFlight.Store(false)

			if settle > 0 {
				log.Debugw("Settling before run", "settle", settle)
				select {
				case <-time.After(settle):
				case <-ctx.Done():
					return
				}
			}

			results, err := runMatrix(ctx, cfg, platforms, nil, log)
			if err != nil {
				log.Errorw("Triggered run failed to start", "error", err)
				return
			}
			if err := printResults(cmd, results); err != nil {
				log.Errorw("Failed to render results", "error", err)
			}
		}

		watcher.OnTrigger(func(changedPath string) error {
			log.Infow("Trigger fired", "path", changedPath, "workflow", trigger.Name)
			go runOnce(changedPath)
			return nil
		})
		watcher.Start()

		pterm.Info.Printf("Watching %s workflow (pin: %s)\n", trigger.Name, cfg.Source.PinFile)

		runOnStart, _ := cmd.Flags().GetBool("run-on-start")
		if runOnStart || cfg.Watch.RunOnStart {
			go runOnce("startup")
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sig:
			log.Infow("Shutting down watcher", "signal", s.String())
		case <-ctx.Done():
		}
		return nil
	},
}

func init() {
	WatchCmd.Flags().Bool("run-on-start", false, "Trigger a run immediately when watching begins")
}
