package bench

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/compudj/tracecompass/cmd/util"
	"github.com/compudj/tracecompass/lib/backend/inmem"
	"github.com/compudj/tracecompass/lib/backend/threaded"
)

var (
	// BenchCommands represents the bench command group
	BenchCommands = &cobra.Command{
		Use:     "bench",
		Short:   "Benchmark the threaded history backend",
		Long:    "Builds a synthetic state history through the threaded backend and reports insertion and query statistics.",
		RunE:    run,
		PreRunE: processBenchConfig,
	}

	benchQueueSize  = 10000
	benchIntervals  = 1_000_000
	benchProducers  = 8
	benchAttributes = 64
	benchQueries    = 10_000
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	key := "queue-size"
	BenchCommands.Flags().Int(key, 10000, util.WrapString("Capacity of the interval insertion queue (2000-10000 usually works well)"))
	key = "intervals"
	BenchCommands.Flags().Int(key, 1_000_000, util.WrapString("Total number of intervals to insert"))
	key = "producers"
	BenchCommands.Flags().Int(key, 8, util.WrapString("Number of concurrent producer goroutines"))
	key = "attributes"
	BenchCommands.Flags().Int(key, 64, util.WrapString("Number of distinct attributes per producer"))
	key = "queries"
	BenchCommands.Flags().Int(key, 10_000, util.WrapString("Number of singular queries to run while building and again after"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchQueueSize = viper.GetInt("queue-size")
	benchIntervals = viper.GetInt("intervals")
	benchProducers = viper.GetInt("producers")
	benchAttributes = viper.GetInt("attributes")
	benchQueries = viper.GetInt("queries")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Benchmark tool for the threaded history backend")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Queue size: %d\n", benchQueueSize)
	fmt.Printf("Intervals:  %d\n", benchIntervals)
	fmt.Printf("Producers:  %d\n", benchProducers)
	fmt.Printf("Attributes: %d per producer\n", benchAttributes)
	fmt.Printf("Queries:    %d\n", benchQueries)
	fmt.Println()

	store := inmem.NewStore(0)
	hb := threaded.NewBackend(store, &threaded.Config{QueueSize: benchQueueSize})

	insertTimer := gometrics.NewTimer()
	buildQueryTimer := gometrics.NewTimer()
	queryTimer := gometrics.NewTimer()

	perProducer := benchIntervals / benchProducers
	value := []byte("bench-value")

	fmt.Println("building history...")
	buildStart := time.Now()

	var wg sync.WaitGroup
	for p := 0; p < benchProducers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(p)))

			// Each producer owns a disjoint attribute range, so per-attribute
			// intervals never overlap across producers.
			attrBase := p * benchAttributes
			for i := 0; i < perProducer; i++ {
				attr := attrBase + rng.Intn(benchAttributes)
				start := int64(i * 10)
				end := start + int64(rng.Intn(10))
				insertTimer.Time(func() {
					if err := hb.InsertPastState(start, end, attr, value); err != nil {
						fmt.Printf("(insert) - error inserting interval: %v\n", err)
					}
				})
			}
		}(p)
	}

	// Query while the build is still in flight to exercise the queue
	// reconciliation path.
	buildQueryHits := 0
	for i := 0; i < benchQueries; i++ {
		t := int64(rand.Intn(perProducer * 10))
		attr := rand.Intn(benchProducers * benchAttributes)
		buildQueryTimer.Time(func() {
			if _, found, err := hb.DoSingularQuery(t, attr); err == nil && found {
				buildQueryHits++
			}
		})
	}

	wg.Wait()
	if err := hb.FinishedBuilding(int64(perProducer * 10)); err != nil {
		return err
	}
	buildDuration := time.Since(buildStart)

	fmt.Println("querying finished history...")
	queryHits := 0
	for i := 0; i < benchQueries; i++ {
		t := int64(rand.Intn(perProducer * 10))
		attr := rand.Intn(benchProducers * benchAttributes)
		queryTimer.Time(func() {
			if _, found, err := hb.DoSingularQuery(t, attr); err == nil && found {
				queryHits++
			}
		})
	}

	hb.Dispose()

	// Print results
	fmt.Println()
	fmt.Printf("build time: %v (%.0f intervals/s)\n", buildDuration.Round(time.Millisecond),
		float64(benchIntervals)/buildDuration.Seconds())
	printTimer("insert", insertTimer)
	printTimer("query (building)", buildQueryTimer)
	printTimer("query (finished)", queryTimer)
	fmt.Printf("query hits: %d/%d while building, %d/%d after\n",
		buildQueryHits, benchQueries, queryHits, benchQueries)

	return nil
}

func printTimer(name string, t gometrics.Timer) {
	ps := t.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-18s count=%d mean=%v p50=%v p95=%v p99=%v\n",
		name,
		t.Count(),
		time.Duration(t.Mean()).Round(time.Nanosecond),
		time.Duration(ps[0]).Round(time.Nanosecond),
		time.Duration(ps[1]).Round(time.Nanosecond),
		time.Duration(ps[2]).Round(time.Nanosecond),
	)
}
