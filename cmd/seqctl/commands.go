package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"

	"github.com/danmuck/seqforge/internal/config"
	"github.com/danmuck/seqforge/internal/dynamics"
	"github.com/danmuck/seqforge/internal/ops"
	"github.com/danmuck/seqforge/internal/ops/engine"
	"github.com/danmuck/seqforge/internal/rotation"
	"github.com/danmuck/seqforge/internal/sequence"
)

type expandFlags struct {
	configPath string
	seed       string
	disc       string
	length     int
	hash       string
	asJSON     bool
}

func (c *cli) parseExpand(name string, args []string) (expandFlags, rotation.Expander, error) {
	var f expandFlags
	fs := c.flags(name)
	fs.StringVar(&f.configPath, "config", "", "config file (toml or yaml)")
	fs.StringVar(&f.seed, "seed", "", "seed string")
	fs.StringVar(&f.disc, "disc", "", "discriminator appended to the seed")
	fs.IntVar(&f.length, "length", 64, "number of symbols")
	fs.StringVar(&f.hash, "hash", "", "hash algorithm override (sha256|sha3-256|blake2b-256|keccak256)")
	fs.BoolVar(&f.asJSON, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return f, nil, err
	}
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return f, nil, err
	}
	if f.hash != "" {
		cfg.Sequence.Hash = f.hash
	}
	exp, err := cfg.Expander()
	if err != nil {
		return f, nil, err
	}
	return f, exp, nil
}

func runExpand(_ context.Context, c *cli, args []string) error {
	f, exp, err := c.parseExpand("expand", args)
	if err != nil {
		return err
	}
	seq, err := exp.Expand(f.seed, f.disc, f.length)
	if err != nil {
		return err
	}
	if f.asJSON {
		return c.printJSON(map[string]any{
			"seed":          f.seed,
			"discriminator": f.disc,
			"length":        seq.Len(),
			"sequence":      seq.String(),
		})
	}
	fmt.Fprintln(c.stdout, seq.String())
	return nil
}

func runScore(_ context.Context, c *cli, args []string) error {
	f, exp, err := c.parseExpand("score", args)
	if err != nil {
		return err
	}
	seq, err := exp.Expand(f.seed, f.disc, f.length)
	if err != nil {
		return err
	}
	score, err := sequence.Score(seq)
	if err != nil {
		return err
	}
	counts := sequence.Counts(seq)
	if f.asJSON {
		alpha := seq.Alphabet()
		bySymbol := make(map[string]int, len(counts))
		for i, n := range counts {
			bySymbol[string(alpha[i])] = n
		}
		return c.printJSON(map[string]any{"score": score, "counts": bySymbol})
	}
	fmt.Fprintln(c.stdout, strconv.FormatFloat(score, 'g', -1, 64))
	return nil
}

func runConverge(_ context.Context, c *cli, args []string) error {
	fs := c.flags("converge")
	configPath := fs.String("config", "", "config file (toml or yaml)")
	initial := fs.Float64("initial", 0.777, "starting value in (0,1)")
	iterations := fs.Int("iterations", 100, "maximum steps")
	rate := fs.Float64("rate", dynamics.Phi, "contraction rate > 1 (default from config)")
	epsilon := fs.Float64("epsilon", dynamics.MachineEpsilon, "early-stop distance (default from config)")
	trajectory := fs.Bool("trajectory", false, "print every step instead of the result")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	set := setFlags(fs)
	r := cfg.Converge.Rate
	if set["rate"] {
		r = *rate
	}
	conv := cfg.Converger()
	if set["epsilon"] {
		if !(*epsilon > 0) {
			return fmt.Errorf("converge: -epsilon %v must be > 0", *epsilon)
		}
		conv.Epsilon = *epsilon
	}
	if *trajectory {
		values, err := conv.Trajectory(*initial, *iterations, r)
		if err != nil {
			return err
		}
		if *asJSON {
			return c.printJSON(values)
		}
		for i, v := range values {
			fmt.Fprintf(c.stdout, "%d\t%s\n", i, strconv.FormatFloat(v, 'g', -1, 64))
		}
		return nil
	}

	res, err := conv.Converge(*initial, *iterations, r)
	if err != nil {
		return err
	}
	if *asJSON {
		return c.printJSON(map[string]any{
			"value":      res.Value,
			"iterations": res.Iterations,
			"precision":  res.Precision,
		})
	}
	fmt.Fprintf(c.stdout, "value=%s iterations=%d precision=%s\n",
		strconv.FormatFloat(res.Value, 'g', -1, 64), res.Iterations, strconv.FormatFloat(res.Precision, 'g', -1, 64))
	return nil
}

func runAmplify(_ context.Context, c *cli, args []string) error {
	fs := c.flags("amplify")
	var in dynamics.AmplifyInput
	fs.Float64Var(&in.Base, "base", 1, "base value")
	fs.Float64Var(&in.GrowthBase, "growth", dynamics.Phi, "growth base > 1")
	fs.Float64Var(&in.ElapsedUnits, "elapsed", 0, "elapsed time units")
	fs.Float64Var(&in.CycleUnits, "cycle", 1, "units per growth cycle")
	fs.Float64Var(&in.Multiplier, "multiplier", 1, "extra multiplier")
	fs.IntVar(&in.ActiveNodes, "active", 1, "active participants")
	fs.IntVar(&in.TotalNodes, "total", 1, "total participants")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := dynamics.Amplify(in)
	if err != nil {
		return err
	}
	if *asJSON {
		return c.printJSON(map[string]float64{"amplification": v})
	}
	fmt.Fprintln(c.stdout, strconv.FormatFloat(v, 'g', -1, 64))
	return nil
}

func runOps(_ context.Context, c *cli, args []string) error {
	fs := c.flags("ops")
	configPath := fs.String("config", "", "config file (toml or yaml)")
	provider := fs.String("provider", engine.ID, "provider id")
	op := fs.String("op", "", "operation name")
	list := fs.Bool("list", false, "list providers and operations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	if *list {
		for _, entry := range reg.Catalog() {
			fmt.Fprintf(c.stdout, "%s\t%s\n", entry.Metadata.ID, entry.Metadata.Description)
			for _, spec := range entry.Operations {
				fmt.Fprintf(c.stdout, "  %s %v\t%s\n", spec.Name, spec.Args, spec.Description)
			}
		}
		return nil
	}
	if *op == "" {
		return fmt.Errorf("%w: ops requires -op or -list", errUsage)
	}
	opArgs, err := engine.ParseArgs(fs.Args())
	if err != nil {
		return err
	}
	res, err := reg.Execute(*provider, *op, opArgs)
	c.stdout.Write(res.Stdout)
	if err != nil {
		return fmt.Errorf("%s %s exited %d: %w", *provider, *op, res.ExitCode, err)
	}
	return nil
}

func newRegistry(cfg config.Config) (*ops.Registry, error) {
	exp, err := cfg.Expander()
	if err != nil {
		return nil, err
	}
	reg := ops.NewRegistry()
	if err := reg.Register(engine.NewProvider(exp, cfg.Converger())); err != nil {
		return nil, err
	}
	return reg, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setFlags reports which flags appeared on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
