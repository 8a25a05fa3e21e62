package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lsmkv/data"
	"lsmkv/engine"
	"lsmkv/util"
)

var (
	dir      string
	count    int
	loglevel string

	rootCmd = &cobra.Command{
		Use:   "benchmark",
		Short: "load the engine and plot operation latencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if unparsed := util.ExtractUnknownArgs(cmd.Flags(), args); len(unparsed) == 1 {
				loglevel = unparsed[0]
			}
			setLogLevel(loglevel)

			return run()
		},
	}
)

func run() error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}

	tree, err := engine.Open(engine.Config{Directory: dir})
	if err != nil {
		return err
	}

	defer func() {
		if err := tree.Close(); err != nil {
			log.WithError(err).Warn("failed to close tree")
		}
	}()

	var (
		keys   = make([]string, count)
		values = make([]string, count)
	)

	for i := range keys {
		keys[i] = fmt.Sprintf("key%08d", i)
		values[i] = fmt.Sprintf("value%08d", i)
	}

	log.WithField("count", count).Info("writing")

	writeTimes := make([]float64, 0, count)

	start := time.Now()
	for i := range keys {
		s := time.Now()

		if err := tree.Put(keys[i], values[i]); err != nil {
			return err
		}

		writeTimes = append(writeTimes, float64(time.Since(s).Microseconds()))
	}

	log.WithField("took", time.Since(start)).Info("writes done")

	rand.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})

	log.WithField("count", count).Info("reading")

	var (
		wg sync.WaitGroup
		mu sync.Mutex

		readTimes = make([]float64, 0, count)
		missing   uint
	)

	start = time.Now()
	for i := range keys {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			s := time.Now()

			r, err := tree.Get(keys[i])
			if err != nil {
				panic(err)
			}

			d := time.Since(s)

			mu.Lock()
			readTimes = append(readTimes, float64(d.Microseconds()))
			if r.Kind != data.Present {
				missing++
			}
			mu.Unlock()
		}(i)
	}

	wg.Wait()

	log.WithFields(log.Fields{"took": time.Since(start), "missing": missing}).Info("reads done")

	fmt.Println("write latencies (us):")
	if err := histogram.Fprint(os.Stdout, histogram.Hist(10, writeTimes), histogram.Linear(40)); err != nil {
		return err
	}

	fmt.Println("read latencies (us):")
	if err := histogram.Fprint(os.Stdout, histogram.Hist(10, readTimes), histogram.Linear(40)); err != nil {
		return err
	}

	s := tree.Stats()
	log.WithFields(log.Fields{
		"puts":       s.PutCount,
		"gets":       s.GetCount,
		"avg_put_us": fmt.Sprintf("%.0f", s.AvgPutMicros),
		"avg_get_us": fmt.Sprintf("%.0f", s.AvgGetMicros),
		"max_put_us": s.MaxPutMicros,
		"max_get_us": s.MaxGetMicros,
	}).Info("engine stats")

	return nil
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
	rootCmd.Flags().StringVarP(&dir, "dir", "d", "temp", "data directory (recreated)")
	rootCmd.Flags().IntVarP(&count, "count", "n", 10000, "number of keys")
	rootCmd.Flags().StringVarP(&loglevel, "loglevel", "l", "info", "log level")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
