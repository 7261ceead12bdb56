// Command rvcore loads a RISC-V ELF image into a hart and drives the
// host-communication, MMIO, and interactive-console surface of the core
// end to end. It is deliberately not an instruction decoder/executor —
// that half of a simulator is out of scope here — so this binary is only
// useful against images that communicate purely through the tohost
// protocol and the devices this package wires up, or as a harness an
// external executor can be grafted onto via the hart.Hart it constructs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rvcore/config"
	"rvcore/hart"
	"rvcore/loader"
)

func main() {
	imagePath := flag.String("image", "", "path to a RISC-V ELF image (required)")
	configPath := flag.String("config", "", "path to a hart configuration YAML file")
	interactive := flag.Bool("interactive", false, "attach an interactive console to the UART")
	tracePath := flag.String("trace", "", "write a diagnostic trace to this file")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "rvcore: -image is required")
		flag.Usage()
		os.Exit(2)
	}

	var logger *log.Logger
	if *tracePath != "" {
		f, err := os.Create(*tracePath)
		if err != nil {
			log.Fatalf("rvcore: opening trace file: %v", err)
		}
		defer f.Close()
		logger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	} else {
		logger = log.New(os.Stderr, "rvcore: ", 0)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("rvcore: loading config: %v", err)
		}
	}

	h, err := cfg.NewHart()
	if err != nil {
		log.Fatalf("rvcore: constructing hart: %v", err)
	}

	img, err := loader.Load(*imagePath, h)
	if err != nil {
		log.Fatalf("rvcore: loading image: %v", err)
	}
	h.PC = img.Entry
	h.NextPC = img.Entry
	if img.ToHost != 0 {
		if cfg.ToHostOverride == "" {
			h.ToHost = img.ToHost
		}
		if cfg.FromHostOverride == "" {
			h.FromHost = img.FromHost
		}
	}
	logger.Printf("loaded %s: entry=%#x tohost=%#x fromhost=%#x xlen=%d", *imagePath, img.Entry, h.ToHost, h.FromHost, h.XLEN)

	var con *console
	if *interactive {
		con = newConsole(h)
		con.start()
		defer con.stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runUntilStop(ctx, h, logger, con)

	if h.Stopped {
		logger.Printf("guest halted: exit=%#x", h.ExitCode)
		if h.ExitCode != 1 {
			os.Exit(1)
		}
		return
	}
}

// runUntilStop pumps the devices a fixed-resolution instruction-count
// clock instead of real time (matching the deterministic mtime hook in
// hart/mmio), draining host output and watching for the tohost protocol
// to report completion. It never retires an instruction itself — a real
// executor would call hart.Read/hart.Write here instead of just ticking
// the clock — but this is enough to demonstrate the core's externally
// observable device surface end to end.
func runUntilStop(ctx context.Context, h *hart.Hart, logger *log.Logger, con *console) {
	const pollInterval = 10 * time.Millisecond
	const maxPolls = 500

	for i := 0; i < maxPolls && !h.Stopped; i++ {
		select {
		case <-ctx.Done():
			logger.Printf("interrupted: %v", ctx.Err())
			return
		default:
		}
		h.ICount += 4096
		h.UpdatePendingInterrupt()
		if con != nil {
			con.printOutput()
		} else if out := h.DrainHostOutput(); len(out) > 0 {
			os.Stdout.Write(out)
		}
		time.Sleep(pollInterval)
	}
}
