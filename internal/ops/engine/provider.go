package engine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/danmuck/seqforge/internal/dynamics"
	"github.com/danmuck/seqforge/internal/ops"
	"github.com/danmuck/seqforge/internal/sequence"
	"github.com/rs/zerolog/log"
)

const ID = "engine"

var (
	errUnknownAction = errors.New("engine: unknown action")
	errBadArgument   = errors.New("engine: bad argument")
)

// Expander is satisfied by *sequence.Expander and *sequence.CachedExpander.
type Expander interface {
	Expand(seed, discriminator string, length int) (sequence.Sequence, error)
}

// Provider exposes expand, score, converge, amplify and trajectory over string args.
type Provider struct {
	expander  Expander
	converger dynamics.Converger
}

// NewProvider builds the engine provider; a nil expander selects the default one.
func NewProvider(expander Expander, converger dynamics.Converger) Provider {
	if expander == nil {
		expander = sequence.DefaultExpander()
	}
	return Provider{expander: expander, converger: converger}
}

// Metadata returns stable identity and capability description.
func (p Provider) Metadata() ops.Metadata {
	return ops.Metadata{
		ID:          ID,
		Name:        "Engine",
		Description: "Deterministic sequence and convergence engine",
	}
}

// Operations returns the engine action catalog.
func (p Provider) Operations() []ops.OperationSpec {
	return []ops.OperationSpec{
		{Name: "expand", Description: "hash-chain expansion of seed+discriminator", Args: []string{"seed", "disc", "length"}, Idempotent: true},
		{Name: "score", Description: "composition balance of the expanded sequence", Args: []string{"seed", "disc", "length"}, Idempotent: true},
		{Name: "converge", Description: "contraction toward unity with early stop", Args: []string{"initial", "iterations", "rate"}, Idempotent: true},
		{Name: "trajectory", Description: "every step of the contraction", Args: []string{"initial", "iterations", "rate"}, Idempotent: true},
		{Name: "amplify", Description: "exponential amplification scaled by node share", Args: []string{"base", "growth", "elapsed", "cycle", "multiplier", "active", "total"}, Idempotent: true},
	}
}

// Execute dispatches one engine action.
func (p Provider) Execute(action string, args map[string]string) (ops.Result, error) {
	log.Debug().Str("action", action).Int("args", len(args)).Msg("ops.engine.Provider.Execute")
	var (
		out string
		err error
	)
	switch action {
	case "expand":
		out, err = p.expand(args)
	case "score":
		out, err = p.score(args)
	case "converge":
		out, err = p.converge(args)
	case "trajectory":
		out, err = p.trajectory(args)
	case "amplify":
		out, err = amplify(args)
	default:
		err = fmt.Errorf("%w: %s", errUnknownAction, action)
		return ops.Result{Status: "error", Stderr: []byte(err.Error() + "\n"), ExitCode: ops.ExitUsage}, err
	}
	if err != nil {
		return ops.Result{Status: "error", Stderr: []byte(err.Error() + "\n"), ExitCode: ops.ExitInput}, err
	}
	return ops.Result{Status: "ok", Stdout: []byte(out + "\n")}, nil
}

func (p Provider) expandArgs(args map[string]string) (sequence.Sequence, error) {
	length, err := intArg(args, "length", 64)
	if err != nil {
		return sequence.Sequence{}, err
	}
	return p.expander.Expand(args["seed"], args["disc"], length)
}

func (p Provider) expand(args map[string]string) (string, error) {
	seq, err := p.expandArgs(args)
	if err != nil {
		return "", err
	}
	return seq.String(), nil
}

func (p Provider) score(args map[string]string) (string, error) {
	seq, err := p.expandArgs(args)
	if err != nil {
		return "", err
	}
	score, err := sequence.Score(seq)
	if err != nil {
		return "", err
	}
	counts := sequence.Counts(seq)
	alpha := seq.Alphabet()
	parts := make([]string, 0, len(counts))
	for i, n := range counts {
		parts = append(parts, fmt.Sprintf("%c=%d", alpha[i], n))
	}
	return fmt.Sprintf("score=%s %s", formatFloat(score), strings.Join(parts, " ")), nil
}

func convergeArgs(args map[string]string) (float64, int, float64, error) {
	initial, err := floatArg(args, "initial", 0.777)
	if err != nil {
		return 0, 0, 0, err
	}
	iterations, err := intArg(args, "iterations", 100)
	if err != nil {
		return 0, 0, 0, err
	}
	rate, err := floatArg(args, "rate", dynamics.Phi)
	if err != nil {
		return 0, 0, 0, err
	}
	return initial, iterations, rate, nil
}

func (p Provider) converge(args map[string]string) (string, error) {
	initial, iterations, rate, err := convergeArgs(args)
	if err != nil {
		return "", err
	}
	c := p.converger
	if raw, ok := args["epsilon"]; ok && strings.TrimSpace(raw) != "" {
		if c.Epsilon, err = floatArg(args, "epsilon", 0); err != nil {
			return "", err
		}
	}
	res, err := c.Converge(initial, iterations, rate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("value=%s iterations=%d precision=%s",
		formatFloat(res.Value), res.Iterations, formatFloat(res.Precision)), nil
}

func (p Provider) trajectory(args map[string]string) (string, error) {
	initial, iterations, rate, err := convergeArgs(args)
	if err != nil {
		return "", err
	}
	values, err := p.converger.Trajectory(initial, iterations, rate)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(values))
	for i, v := range values {
		lines = append(lines, fmt.Sprintf("%d %s", i, formatFloat(v)))
	}
	return strings.Join(lines, "\n"), nil
}

func amplify(args map[string]string) (string, error) {
	var in dynamics.AmplifyInput
	var err error
	floats := []struct {
		key  string
		def  float64
		dest *float64
	}{
		{"base", 1, &in.Base},
		{"growth", dynamics.Phi, &in.GrowthBase},
		{"elapsed", 0, &in.ElapsedUnits},
		{"cycle", 1, &in.CycleUnits},
		{"multiplier", 1, &in.Multiplier},
	}
	for _, f := range floats {
		if *f.dest, err = floatArg(args, f.key, f.def); err != nil {
			return "", err
		}
	}
	if in.ActiveNodes, err = intArg(args, "active", 1); err != nil {
		return "", err
	}
	if in.TotalNodes, err = intArg(args, "total", 1); err != nil {
		return "", err
	}
	v, err := dynamics.Amplify(in)
	if err != nil {
		return "", err
	}
	return formatFloat(v), nil
}

func floatArg(args map[string]string, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(args[key])
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadArgument, key, raw)
	}
	return v, nil
}

func intArg(args map[string]string, key string, def int) (int, error) {
	raw := strings.TrimSpace(args[key])
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.ReplaceAll(raw, "_", ""))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadArgument, key, raw)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseArgs turns key=value pairs into an argument map. Later keys win.
func ParseArgs(pairs []string) (map[string]string, error) {
	args := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", errBadArgument, pair)
		}
		args[k] = v
	}
	return args, nil
}

// ActionNames lists operation names in sorted order.
func (p Provider) ActionNames() []string {
	specs := p.Operations()
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}
