package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"csrngemu/internal/bus"
	"csrngemu/internal/config"
	"csrngemu/internal/csrng"
	"csrngemu/internal/kat"
	"csrngemu/internal/trace"
)

var errKATFailed = errors.New("known-answer test failed")

func cmdKAT(args []string) error {
	fs := flag.NewFlagSet("kat", flag.ExitOnError)
	vectorsPath := fs.String("vectors", "", "vector file (default: config kat.vectors_path, then built-in)")
	fs.Parse(args)

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	return runKAT(context.Background(), a, *vectorsPath)
}

func loadVectors(path string) ([]kat.Vector, error) {
	if path == "" {
		return kat.Builtin()
	}
	return kat.Load(path)
}

func runKAT(ctx context.Context, a *app, vectorsPath string) error {
	if vectorsPath == "" {
		vectorsPath = a.cfg.KAT.VectorsPath
	}
	vectors, err := loadVectors(vectorsPath)
	if err != nil {
		return err
	}

	results, err := kat.Run(ctx, vectors, a.newVectorDevice)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Passed() {
			fmt.Printf("PASS  %s\n", r.Name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n", r.Name)
		if r.Err != nil {
			fmt.Printf("      %v\n", r.Err)
		}
		for _, m := range r.Mismatches {
			fmt.Printf("      %s\n", m)
		}
	}
	fmt.Printf("\n%d/%d vectors passed\n", len(results)-failed, len(results))

	a.log.Info("kat run complete", "vectors", len(results), "failed", failed)
	a.logHealth()
	if failed > 0 {
		return errKATFailed
	}
	return nil
}

func cmdGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	blocks := fs.Int("blocks", 1, "number of 128-bit blocks to generate")
	seedList := fs.String("seed", "", "comma-separated hex seed words (empty: zero seed)")
	useEntropy := fs.Bool("entropy", false, "seed from the configured entropy source")
	fs.Parse(args)

	if *useEntropy && *seedList != "" {
		return errors.New("-seed and -entropy are mutually exclusive")
	}
	seed, err := parseWords(*seedList)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	drv := csrng.NewDriver(a.newDevice())
	if *useEntropy {
		err = drv.InstantiateFromEntropy()
		a.logHealth()
	} else {
		err = drv.Instantiate(seed)
	}
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	words, err := drv.Generate(*blocks)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	for i := 0; i < len(words); i += 4 {
		end := min(i+4, len(words))
		parts := make([]string, 0, 4)
		for _, w := range words[i:end] {
			parts = append(parts, fmt.Sprintf("%08x", w))
		}
		fmt.Println(strings.Join(parts, " "))
	}
	return nil
}

func parseWords(list string) ([]uint32, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	var out []uint32
	for _, f := range strings.Split(list, ",") {
		f = strings.TrimPrefix(strings.TrimSpace(f), "0x")
		v, err := strconv.ParseUint(f, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("seed word %q: %w", f, err)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

func cmdRegmap(args []string) error {
	fs := flag.NewFlagSet("regmap", flag.ExitOnError)
	fs.Parse(args)

	dev := csrng.NewDevice(csrng.Config{})
	fmt.Printf("%-8s  %-26s  %-10s  %s\n", "OFFSET", "NAME", "ACCESS", "RESET")
	for _, e := range dev.Registers() {
		reset := "-"
		if e.Access != bus.AccessWriteOnly && !e.SideEffects {
			if v, err := dev.Read(e.Offset); err == nil {
				reset = fmt.Sprintf("0x%08x", v)
			}
		}
		name := e.Name
		if e.SideEffects {
			name += " *"
		}
		fmt.Printf("0x%04x    %-26s  %-10s  %s\n", e.Offset, name, e.Access, reset)
	}
	fmt.Println("\n* access has side effects")
	return nil
}

func cmdTrace(args []string) error {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	session := fs.String("session", "", "session to print (default: list sessions)")
	fs.Parse(args)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Trace.DatabasePath); os.IsNotExist(err) {
		fmt.Println("No trace database found")
		return nil
	}

	store, err := trace.Open(cfg.Trace.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if *session == "" {
		sessions, err := store.Sessions()
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("%-32s  %s  %6d accesses\n", s.Name, s.Started.Format("2006-01-02 15:04:05"), s.Accesses)
		}
		return nil
	}

	accesses, err := store.Accesses(*session)
	if err != nil {
		return err
	}
	for _, acc := range accesses {
		line := fmt.Sprintf("%s  %-5s 0x%04x %-26s 0x%08x",
			acc.Timestamp.Format("15:04:05.000000"), acc.Op, acc.Offset, acc.Register, acc.Value)
		if acc.Error != "" {
			line += "  ! " + acc.Error
		}
		fmt.Println(line)
	}
	return nil
}

// cmdWatch re-runs the vectors on every valid config edit, picking up
// entropy and logging changes.
func cmdWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	vectorsPath := fs.String("vectors", "", "vector file (default: config kat.vectors_path, then built-in)")
	fs.Parse(args)

	loader := config.NewLoader(resolvedConfigPath())
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := loader.Watch(); err != nil {
		return err
	}
	defer loader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changed := make(chan *config.Config, 1)
	loader.OnChange(func(c *config.Config) {
		select {
		case changed <- c:
		default:
		}
	})

	for {
		a, err := newApp(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			if err := runKAT(ctx, a, *vectorsPath); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			a.Close()
		}

	wait:
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-loader.Errors():
				fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			case cfg = <-changed:
				fmt.Println("\nconfig changed, re-running")
				break wait
			}
		}
	}
}
