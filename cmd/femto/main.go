// femto - a miniature cooperative multitasking OS over a serial console
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/femto/asm"
	"github.com/chazu/femto/config"
	"github.com/chazu/femto/console"
	"github.com/chazu/femto/kernel"
	"github.com/chazu/femto/store"
)

var log = commonlog.GetLogger("femto")

// multiFlag collects repeatable name=path flags.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	var loads multiFlag
	configPath := flag.String("config", "femto.toml", "Kernel configuration file")
	imagePath := flag.String("image", "", "Store image file (overrides the config)")
	verbose := flag.Bool("v", false, "Verbose diagnostics")
	assemble := flag.String("assemble", "", "Assemble a .fasm source and exit")
	output := flag.String("o", "", "Output path for -assemble")
	dumpOnExit := flag.String("dump-on-exit", "", "Write a CBOR kernel snapshot here on shutdown")
	flag.Var(&loads, "load", "Preload a program into the store: name=path (repeatable; .fasm sources are assembled)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: femto [options]\n\n")
		fmt.Fprintf(os.Stderr, "Boots the femto kernel on a serial console over stdin/stdout.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  femto                               # boot with femto.toml (or defaults)\n")
		fmt.Fprintf(os.Stderr, "  femto -image femto.img              # boot against a persistent image\n")
		fmt.Fprintf(os.Stderr, "  femto -load blink=programs/blink.fasm\n")
		fmt.Fprintf(os.Stderr, "  femto -assemble prog.fasm -o prog.bin\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if *assemble != "" {
		if err := assembleFile(*assemble, *output); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *imagePath != "" {
		cfg.Store.Image = *imagePath
	}

	if err := boot(cfg, loads, *dumpOnExit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func boot(cfg *config.Config, loads []string, dumpPath string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	con, err := openConsole()
	if err != nil {
		return err
	}
	defer con.Close()

	k := kernel.New(kernel.Options{
		Store:          st,
		Console:        con,
		MaxFiles:       cfg.Store.MaxFiles,
		ArenaSize:      cfg.Memory.ArenaSize,
		MaxVariables:   cfg.Memory.MaxVariables,
		ProcessSlots:   cfg.Process.Slots,
		StackSize:      cfg.Process.StackSize,
		FloatPrecision: cfg.Output.FloatPrecision,
	})
	k.Boot()

	for _, entry := range loads {
		if err := preload(k, entry); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	k.Run(ctx, time.Duration(cfg.Process.TickMillis)*time.Millisecond)

	if dumpPath != "" {
		if err := k.WriteSnapshot(dumpPath); err != nil {
			return err
		}
	}
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Image == "" {
		log.Info("no store image configured, using volatile memory")
		return store.NewMem(cfg.Store.Capacity), nil
	}
	return store.OpenFile(cfg.Store.Image, cfg.Store.Capacity)
}

func openConsole() (console.Console, error) {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return console.OpenTTY()
	}
	log.Info("stdin is not a terminal, using line-buffered console")
	return console.NewStdio(), nil
}

// preload stores a host-side program into the kernel's file table
// before the event loop starts. Sources ending in .fasm are assembled;
// anything else is stored verbatim.
func preload(k *kernel.Kernel, entry string) error {
	name, path, ok := strings.Cut(entry, "=")
	if !ok {
		return fmt.Errorf("bad -load %q, want name=path", entry)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == ".fasm" {
		if data, err = asm.Assemble(string(data)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := k.FAT().Store(name, data); err != nil {
		return fmt.Errorf("cannot preload %q: %w", name, err)
	}
	log.Infof("preloaded %q (%d bytes)", name, len(data))
	return nil
}

func assembleFile(src, out string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	blob, err := asm.Assemble(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if out == "" {
		out = strings.TrimSuffix(src, filepath.Ext(src)) + ".bin"
	}
	if err := os.WriteFile(out, blob, 0o644); err != nil {
		return err
	}
	fmt.Printf("Assembled %s: %d bytes -> %s\n", src, len(blob), out)
	return nil
}
