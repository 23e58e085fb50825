package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cpuload-view/internal/config"
	"cpuload-view/internal/logging"
	"cpuload-view/internal/source"
	"cpuload-view/internal/view"
)

var dumpInterval time.Duration

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print raw CPU load samples as JSON",
	Long:  "dump polls the JSON endpoint and prints every sample as an indented JSON array.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		durationFlag(cmd, "interval", dumpInterval, &cfg.DumpInterval)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, closeLog, err := newLogger(cfg, config.OutputText)
		if err != nil {
			return err
		}
		defer closeLog()

		url, err := source.PollURL(cfg.Origin, cfg.APIPath)
		if err != nil {
			return err
		}
		p := source.NewPoller(source.PollerConfig{URL: url, Interval: cfg.DumpInterval})
		v := view.New(view.NewDumpSink(cmd.OutOrStdout()), view.WithLogger(logger))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		ctx = logging.NewContext(ctx, logger)
		if err := v.Use(ctx, p); err != nil {
			return err
		}
		defer v.Stop()
		<-ctx.Done()
		return nil
	},
}

func init() {
	dumpCmd.Flags().DurationVar(&dumpInterval, "interval", time.Second, "Poll interval (e.g. 500ms, 2s)")
}
