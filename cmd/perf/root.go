package perf

import (
	"encoding/csv"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gridkv/gridkv-go/client"
	"github.com/gridkv/gridkv-go/client/common"
	"github.com/gridkv/gridkv-go/client/protocol"
	"github.com/gridkv/gridkv-go/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for grid clusters",
		RunE:    run,
		PreRunE: processPerfConfig,
	}

	perfNumThreads = 10
	perfCSVPath    = ""
)

func init() {
	// add flags
	key := "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of parallel invokers to use for the benchmark"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfNumThreads = viper.GetInt("threads")
	perfCSVPath = viper.GetString("csv")

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	config := util.GetClientConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}

	fmt.Println("Performance testing tool for grid clusters")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	c, err := client.New(config)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	fmt.Println("starting benchmarks...")

	results := make(map[string]testing.BenchmarkResult)

	results["ping-random"] = testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				inv := c.Invocations().InvokeOnRandomTarget(protocol.NewPingRequest(), nil)
				if _, err := inv.Future().Result(); err != nil {
					b.Errorf("ping failed: %v", err)
					return
				}
			}
		})
	})

	results["ping-partition"] = testing.Benchmark(func(b *testing.B) {
		partitions := c.Partitions().Count()
		b.SetParallelism(perfNumThreads)
		b.RunParallel(func(pb *testing.PB) {
			partition := int32(0)
			for pb.Next() {
				inv := c.Invocations().InvokeOnPartition(protocol.NewPingRequest(), partition, nil)
				if _, err := inv.Future().Result(); err != nil {
					b.Errorf("partition ping failed: %v", err)
					return
				}
				partition = (partition + 1) % partitions
			}
		})
	})

	printResults(results)

	if perfCSVPath != "" {
		return writeCSV(perfCSVPath, results)
	}
	return nil
}

func printResults(results map[string]testing.BenchmarkResult) {
	fmt.Println()
	fmt.Printf("%-16s %12s %16s\n", "benchmark", "ops", "ns/op")
	for name, result := range results {
		fmt.Printf("%-16s %12d %16d\n", name, result.N, result.NsPerOp())
	}
}

func writeCSV(path string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"benchmark", "ops", "ns_per_op", "timestamp"}); err != nil {
		return err
	}
	timestamp := time.Now().Format(time.RFC3339)
	for name, result := range results {
		record := []string{
			name,
			fmt.Sprintf("%d", result.N),
			fmt.Sprintf("%d", result.NsPerOp()),
			timestamp,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
