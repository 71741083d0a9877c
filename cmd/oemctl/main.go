// Command oemctl is a bring-up and planning inspection tool for the
// sequencer core, merging the platform's separate register-dump and
// register-poke utilities into one CLI with subcommands.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/pflag"

	"github.com/usoem/oemseq/oem"
	"github.com/usoem/oemseq/oemseqerr"
	"github.com/usoem/oemseq/plan"
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: oemctl <command> [flags]

commands:
  regs   dump the bring-up register bank and its default values
  plan   build and summarize a plan for a scan request against a probe`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "regs":
		runRegs(os.Args[2:])
	case "plan":
		runPlan(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

// runRegs shows the default bring-up register bank, adapted from
// showreg's reflection-based dump but against DefaultBringupRegisters'
// values rather than a live memory-mapped register file or a simulator.
func runRegs(args []string) {
	fs := pflag.NewFlagSet("regs", pflag.ExitOnError)
	fs.Parse(args)

	regs := oem.DefaultBringupRegisters()
	for _, f := range oem.DumpRegisters(&regs) {
		fmt.Printf("%-20s %-4s %-10s %s\n", f.Name, f.Mode, f.Value, f.Desc)
	}
}

// runPlan builds a small plane-wave plan against a named probe and prints
// its shape, standing in for pk2's peek/poke loop as a way to sanity
// check the planner without touching hardware.
func runPlan(args []string) {
	fs := pflag.NewFlagSet("plan", pflag.ExitOnError)
	probeName := fs.StringP("probe", "p", "generic128", "probe name")
	adapterTag := fs.StringP("adapter", "a", "packed", "adapter tag: packed or interleaved")
	nOEM := fs.IntP("noem", "n", 1, "number of OEM modules")
	angleDeg := fs.Float64P("angle", "t", 0, "plane-wave steering angle, degrees")
	fs.Parse(args)

	lib, err := probe.LoadLibrary()
	if err != nil {
		fmt.Fprintln(os.Stderr, "oemctl: load probe library:", err)
		os.Exit(1)
	}
	p, err := lib.Get(*probeName, *adapterTag, *nOEM)
	if err != nil {
		fmt.Fprintln(os.Stderr, "oemctl: resolve probe:", err)
		os.Exit(1)
	}

	req := sequence.Request{
		Kind:           sequence.PWI,
		TxApertureSize: []float64{float64(p.NElem)},
		TxFocus:        []float64{math.Inf(1)},
		TxAngle:        []float64{*angleDeg * math.Pi / 180},
		SpeedOfSound:   1540,
		TxFrequency:    5e6,
		TxNPeriods:     2,
		RxNSamples:     &[2]int{1, 1024},
		TxPri:          200e-6,
		NRepetitions:   1,
		FsDivider:      1,
	}

	n, err := sequence.Normalize(req, p, oemseqerr.DiscardObserver{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "oemctl: normalize:", err)
		os.Exit(1)
	}
	pl, err := plan.Build(n, p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "oemctl: build plan:", err)
		os.Exit(1)
	}

	fmt.Printf("probe=%s adapter=%s nTx=%d nSubTx=%d rxApSize=%d nSamp=%d\n",
		p.Name, p.Adapter.Type, pl.NTx, pl.NSubTx, pl.RxApSize, n.NSamp)
}

