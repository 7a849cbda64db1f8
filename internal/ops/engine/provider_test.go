package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/seqforge/internal/dynamics"
	"github.com/danmuck/seqforge/internal/ops"
	"github.com/danmuck/seqforge/internal/sequence"
	"github.com/danmuck/seqforge/internal/testutil/testlog"
)

const genesisSHA256 = "GGACGCCCGTTGGTTAAAGAAGCGCCGGATTCGTCTGAGCAAGCTACCCATTACAGAGCTTCATTACGAGTATTAGTTAG"

func TestProviderMetadata(t *testing.T) {
	testlog.Start(t)
	p := NewProvider(nil, dynamics.DefaultConverger())
	if err := ops.ValidateMetadata(p.Metadata()); err != nil {
		t.Fatalf("metadata should be valid: %v", err)
	}
	got := strings.Join(p.ActionNames(), ",")
	if got != "amplify,converge,expand,score,trajectory" {
		t.Fatalf("unexpected actions: %s", got)
	}
}

func TestProviderExpandDeterministic(t *testing.T) {
	testlog.Start(t)
	p := NewProvider(nil, dynamics.DefaultConverger())
	args := map[string]string{"seed": "genesis", "disc": "forward", "length": "80"}
	res, err := p.Execute("expand", args)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if res.Status != "ok" || res.ExitCode != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !bytes.Equal(res.Stdout, []byte(genesisSHA256+"\n")) {
		t.Fatalf("unexpected stdout: %q", string(res.Stdout))
	}
}

func TestProviderScore(t *testing.T) {
	testlog.Start(t)
	p := NewProvider(nil, dynamics.DefaultConverger())
	res, err := p.Execute("score", map[string]string{"seed": "genesis", "disc": "forward", "length": "80"})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.HasPrefix(string(res.Stdout), "score=0.975 ") {
		t.Fatalf("unexpected stdout: %q", string(res.Stdout))
	}
}

func TestProviderConverge(t *testing.T) {
	testlog.Start(t)
	p := NewProvider(nil, dynamics.Converger{Epsilon: 1e-12})
	res, err := p.Execute("converge", map[string]string{"initial": "0.777", "iterations": "1000"})
	if err != nil {
		t.Fatalf("converge: %v", err)
	}
	if !strings.Contains(string(res.Stdout), "iterations=55 ") {
		t.Fatalf("unexpected stdout: %q", string(res.Stdout))
	}
}

func TestProviderTrajectoryLength(t *testing.T) {
	testlog.Start(t)
	p := NewProvider(nil, dynamics.DefaultConverger())
	res, err := p.Execute("trajectory", map[string]string{"initial": "0.5", "iterations": "3", "rate": "2"})
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	want := "0 0.5\n1 0.75\n2 0.875\n3 0.9375\n"
	if string(res.Stdout) != want {
		t.Fatalf("unexpected stdout: %q", string(res.Stdout))
	}

	coarse := NewProvider(nil, dynamics.Converger{Epsilon: 0.1})
	res, err = coarse.Execute("trajectory", map[string]string{"initial": "0.5", "iterations": "1000000000", "rate": "2"})
	if err != nil {
		t.Fatalf("coarse trajectory: %v", err)
	}
	if string(res.Stdout) != want {
		t.Fatalf("expected trajectory to stop with the converger, got %q", string(res.Stdout))
	}
}

func TestProviderAmplify(t *testing.T) {
	testlog.Start(t)
	p := NewProvider(nil, dynamics.DefaultConverger())
	res, err := p.Execute("amplify", map[string]string{
		"base": "2", "growth": "2", "elapsed": "3", "cycle": "1", "multiplier": "1", "active": "1", "total": "2",
	})
	if err != nil {
		t.Fatalf("amplify: %v", err)
	}
	if string(res.Stdout) != "8\n" {
		t.Fatalf("unexpected stdout: %q", string(res.Stdout))
	}
}

func TestProviderRejectsInvalidInput(t *testing.T) {
	testlog.Start(t)
	p := NewProvider(nil, dynamics.DefaultConverger())

	res, err := p.Execute("explode", nil)
	if !errors.Is(err, errUnknownAction) || res.ExitCode != ops.ExitUsage {
		t.Fatalf("expected unknown action, got res=%+v err=%v", res, err)
	}

	res, err = p.Execute("expand", map[string]string{"length": "abc"})
	if !errors.Is(err, errBadArgument) || res.ExitCode != ops.ExitInput || res.ExitCode != 65 {
		t.Fatalf("expected bad argument, got res=%+v err=%v", res, err)
	}

	_, err = p.Execute("converge", map[string]string{"rate": "1"})
	if !errors.Is(err, dynamics.ErrInvalidRate) {
		t.Fatalf("expected invalid rate, got %v", err)
	}

	_, err = p.Execute("expand", map[string]string{"length": "0"})
	if !errors.Is(err, sequence.ErrInvalidLength) {
		t.Fatalf("expected invalid length, got %v", err)
	}
}

func TestProviderThroughRegistry(t *testing.T) {
	testlog.Start(t)
	reg := ops.NewRegistry()
	if err := reg.Register(NewProvider(nil, dynamics.DefaultConverger())); err != nil {
		t.Fatalf("register: %v", err)
	}
	res, err := reg.Execute(ID, "expand", map[string]string{"seed": "genesis", "disc": "forward", "length": "8"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(res.Stdout) != genesisSHA256[:8]+"\n" {
		t.Fatalf("expected prefix-stable output, got %q", string(res.Stdout))
	}
}

func TestParseArgs(t *testing.T) {
	testlog.Start(t)
	args, err := ParseArgs([]string{"seed=a=b", "length=8", "length=9"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if args["seed"] != "a=b" || args["length"] != "9" {
		t.Fatalf("unexpected args: %v", args)
	}
	if _, err := ParseArgs([]string{"novalue"}); !errors.Is(err, errBadArgument) {
		t.Fatalf("expected bad argument, got %v", err)
	}
}
