// This file is part of armv7m.
//
// armv7m is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armv7m is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armv7m.  If not, see <https://www.gnu.org/licenses/>.

// Command armv7m loads an ELF image built for a bare Cortex-M target and
// runs it to completion (or to an instruction budget) under this package's
// ARMv7-M Thumb-2 core.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/go-echarts/statsview"

	"github.com/jetsetilly/armv7m/armv7m"
	"github.com/jetsetilly/armv7m/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("armv7m", flag.ContinueOnError)

	ram1Base := fs.Uint("ram1-base", 0x20000000, "base address of the mandatory RAM span")
	ram1Size := fs.Uint("ram1-size", 64*1024, "size in bytes of the mandatory RAM span")
	ram2Base := fs.Uint("ram2-base", 0, "base address of the optional second RAM span (0 disables it)")
	ram2Size := fs.Uint("ram2-size", 0, "size in bytes of the optional second RAM span")
	maxInstructions := fs.Uint64("max-instructions", 10_000_000, "instruction budget before Exec gives up")
	trace := fs.Bool("trace", false, "log every retired instruction")
	interactive := fs.Bool("interactive", false, "wire semihosting SYS_READC to the host terminal")
	graphPath := fs.String("graph", "", "write a memviz struct graph of the final CPU state to this path")
	statsEnable := fs.Bool("stats", false, "serve a live go-echarts statsview dashboard on its default address")
	entryOverride := fs.Bool("set-entry-point", false, "override the post-reset PC with the ELF header's entry point")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: armv7m [flags] <elf-image>")
		return 2
	}

	if *statsEnable {
		mgr := statsview.New()
		go mgr.Start()
	}

	opts := armv7m.Options{Interactive: *interactive}
	if *trace {
		opts.Trace = func(pc uint32, summary string) {
			fmt.Fprintf(os.Stderr, "%#08x: %s\n", pc, summary)
		}
	}

	cpu := armv7m.NewCPU(opts)

	loadOpts := armv7m.LoadOptions{
		RAM1Base: uint32(*ram1Base),
		RAM1Size: uint32(*ram1Size),
		RAM2Base: uint32(*ram2Base),
		RAM2Size: uint32(*ram2Size),
	}

	if err := cpu.Load(fs.Arg(0), loadOpts, *entryOverride); err != nil {
		fmt.Fprintf(os.Stderr, "armv7m: %v\n", err)
		return 1
	}

	result := cpu.Exec(*maxInstructions, nil, nil)

	if *graphPath != "" {
		if f, err := os.Create(*graphPath); err == nil {
			snap := cpu.Snapshot()
			memviz.Map(f, &snap)
			f.Close()
		} else {
			logger.Logf("main", "graph: %v", err)
		}
	}

	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "armv7m: %v\n", result.Err)
		return 1
	}
	if result.Exited {
		return int(result.ExitCode)
	}
	return 0
}
