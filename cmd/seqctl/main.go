package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/danmuck/seqforge/internal/config"
	"github.com/danmuck/seqforge/internal/logging"
	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage")

type command struct {
	summary string
	run     func(ctx context.Context, cli *cli, args []string) error
}

var commands = map[string]command{
	"expand":   {"print the hash-chain sequence for a seed", runExpand},
	"score":    {"print the composition score of an expanded sequence", runScore},
	"converge": {"run the contraction toward unity", runConverge},
	"amplify":  {"compute one amplification", runAmplify},
	"ops":      {"dispatch an engine operation through the provider registry", runOps},
	"rotate":   {"run the state rotation scheduler", runRotate},
}

// cli carries the process streams so commands can be driven from tests.
type cli struct {
	stdout io.Writer
	stderr io.Writer
}

func main() {
	logging.ConfigureRuntime()
	log.Logger = log.Logger.With().Str("app", "seqctl").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "seqctl: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.usage()
		return errUsage
	}
	name := strings.TrimSpace(args[0])
	cmd, ok := commands[name]
	if !ok {
		if name == "help" || name == "-h" || name == "--help" {
			c.usage()
			return nil
		}
		c.usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	return cmd.run(ctx, c, args[1:])
}

func (c *cli) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.stderr, "usage: seqctl <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(c.stderr, "  %-9s %s\n", name, commands[name].summary)
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("seqctl "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func loadConfig(path string) (config.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	log.Debug().Str("path", path).Msg("seqctl.loadConfig")
	return cfg, nil
}
