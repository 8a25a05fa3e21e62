package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lsmkv/data"
	"lsmkv/engine"
)

const version = "0.0.1"

var (
	cfg      engine.Config
	loglevel string

	rootCmd = &cobra.Command{
		Use:     "lsmkv",
		Short:   "embeddable lsm-tree key-value store",
		Long:    "Operate on an lsmkv data directory: durable puts, point gets, operation stats.",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogLevel(loglevel)
		},
	}

	putCmd = &cobra.Command{
		Use:   "put <key> <value>",
		Short: "durably store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			return withTree(func(t *engine.Tree) error {
				return t.Put(args[0], args[1])
			})
		},
	}

	getCmd = &cobra.Command{
		Use:   "get <key>",
		Short: "look a key up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			return withTree(func(t *engine.Tree) error {
				r, err := t.Get(args[0])
				if err != nil {
					return err
				}

				if r.Kind != data.Present {
					return fmt.Errorf("key %q not found", args[0])
				}

				fmt.Println(r.Value)

				return nil
			})
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "print operation counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			return withTree(func(t *engine.Tree) error {
				s := t.Stats()

				fmt.Printf("get: %d ops, avg %.0fus, max %dus\n", s.GetCount, s.AvgGetMicros, s.MaxGetMicros)
				fmt.Printf("put: %d ops, avg %.0fus, max %dus\n", s.PutCount, s.AvgPutMicros, s.MaxPutMicros)

				return nil
			})
		},
	}
)

func withTree(f func(*engine.Tree) error) error {
	t, err := engine.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open tree: %w", err)
	}

	defer func() {
		if err := t.Close(); err != nil {
			log.WithError(err).Warn("failed to close tree")
		}
	}()

	return f(t)
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfg.Directory, "dir", "d", ".", "data directory")
	rootCmd.PersistentFlags().StringVarP(&loglevel, "loglevel", "l", "info", "log level")

	rootCmd.AddCommand(putCmd, getCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
