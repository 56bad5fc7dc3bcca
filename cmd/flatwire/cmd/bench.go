package cmd

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"
)

type benchRecord struct {
	Val      []string
	Mod      []int8
	Integers []int16
	Float3   []float32
	Float6   []float64
}

func newBenchCmd(a *app) *cobra.Command {
	var n int
	var memProfile string
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Encode and decode a sample record in a loop",
		Long: `Encode and decode a sample record n times with the configured builder
options, print the throughput and optionally write a heap profile.

Example:
  flatwire bench --n 100000 --memprofile mem.prof`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("--n must be positive, got %d", n)
			}
			if memProfile != "" {
				defer func(rate int) { runtime.MemProfileRate = rate }(runtime.MemProfileRate)
				runtime.MemProfileRate = 1
			}
			z := benchRecord{Val: []string{"azerty", "hello", "world", "random"},
				Mod: []int8{12, 10, 13, 0}, Integers: []int16{100, 250, 300},
				Float3: []float32{12.13, 16.23, 75.1}, Float6: []float64{100.5, 165.63, 153.5}}
			fw := a.codec(nil)
			var size int
			start := time.Now()
			for i := 0; i < n; i++ {
				data, err := fw.Encode(z)
				if err != nil {
					return err
				}
				res := &benchRecord{}
				if err := fw.Decode(data, res); err != nil {
					return err
				}
				size = len(data)
			}
			elapsed := time.Since(start)
			fmt.Fprintf(cmd.OutOrStdout(), "%d round trips of %d bytes in %s (%s/op)\n",
				n, size, elapsed, elapsed/time.Duration(n))

			if memProfile == "" {
				return nil
			}
			f, err := os.Create(memProfile)
			if err != nil {
				return err
			}
			defer f.Close()
			return pprof.WriteHeapProfile(f)
		},
	}
	benchCmd.Flags().IntVar(&n, "n", 10000, "Round trips to run")
	benchCmd.Flags().StringVar(&memProfile, "memprofile", "", "Write a heap profile to this file")
	return benchCmd
}
