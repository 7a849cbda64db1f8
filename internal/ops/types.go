package ops

// Metadata identifies a provider in listings and dispatch.
type Metadata struct {
	ID          string
	Name        string
	Description string
}

// Result carries one execution's output. ExitCode follows sysexits:
// EX_USAGE (64) for unknown operations, EX_DATAERR (65) for rejected input.
type Result struct {
	Status   string
	Stdout   []byte
	Stderr   []byte
	ExitCode int32
}

const (
	ExitOK    int32 = 0
	ExitInput int32 = 65
	ExitUsage int32 = 64
)

// OperationSpec describes one action a provider accepts. Args names the keys the
// action reads; every key is optional and falls back to a default.
type OperationSpec struct {
	Name        string
	Description string
	Args        []string
	Idempotent  bool
}

// Provider turns string-keyed arguments into engine calls.
type Provider interface {
	Metadata() Metadata
	Operations() []OperationSpec
	Execute(action string, args map[string]string) (Result, error)
}

// Entry pairs a provider's metadata with its operation catalog.
type Entry struct {
	Metadata   Metadata
	Operations []OperationSpec
}

func usageResult(err error) Result {
	return Result{Status: "error", Stderr: []byte(err.Error() + "\n"), ExitCode: ExitUsage}
}
