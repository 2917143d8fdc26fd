// Package main provides the entry point for dlxsim, a cycle-accurate
// simulator for a classic 5-stage in-order pipeline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/dlxsim/asm"
	"github.com/sarchlab/dlxsim/timing/latency"
	"github.com/sarchlab/dlxsim/timing/pipeline"
)

var (
	memSize    = flag.Uint("mem-size", 1024, "Data memory size in bytes")
	memLatency = flag.Uint("mem-latency", 0, "Data memory latency in cycles")
	cycles     = flag.Uint64("cycles", 0, "Cycles to run (0 = run to completion)")
	base       = flag.Uint("base", 0, "Instruction base address")
	configPath = flag.String("config", "", "Path to timing configuration JSON file")
	fpUnits    = flag.Bool("fp", false, "Enable default floating-point execution units")
	dumpStart  = flag.Uint("dump-start", 0, "Start of the memory range to dump")
	dumpEnd    = flag.Uint("dump-end", 0, "End of the memory range to dump")
	verbose    = flag.Bool("v", false, "Print register contents after the run")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: dlxsim [options] <program.asm>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := asm.LoadFile(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	pipe, err := buildPipeline()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := pipe.LoadProgram(prog.Insts, prog.Labels, uint32(*base)); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	pipe.Run(*cycles)

	stats := pipe.Stats()
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Clock cycles: %d\n", stats.Cycles)
	fmt.Printf("Instructions executed: %d\n", stats.Instructions)
	fmt.Printf("Stalls: %d\n", stats.Stalls)
	fmt.Printf("IPC: %.4f\n", stats.IPC())

	if *verbose {
		pipe.PrintRegisters(os.Stdout)
	}
	if *dumpEnd > *dumpStart {
		pipe.PrintMemory(os.Stdout, uint32(*dumpStart), uint32(*dumpEnd))
	}
}

// buildPipeline constructs the pipeline from the command-line flags,
// preferring an explicit configuration file over the individual flags.
func buildPipeline() (*pipeline.Pipeline, error) {
	if *configPath != "" {
		config, err := latency.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		return pipeline.NewFromConfig(config), nil
	}

	if *fpUnits {
		config := latency.DefaultFPConfig()
		config.MemorySize = uint32(*memSize)
		config.MemoryLatency = uint32(*memLatency)
		return pipeline.NewFromConfig(config), nil
	}

	return pipeline.New(uint32(*memSize), uint32(*memLatency)), nil
}
