package ops

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrProviderExists   = errors.New("ops: provider already exists")
	ErrProviderNil      = errors.New("ops: provider is nil")
	ErrInvalidMetadata  = errors.New("ops: invalid provider metadata")
	ErrInvalidOperation = errors.New("ops: invalid operation spec")
	ErrUnknownProvider  = errors.New("ops: unknown provider")
	ErrUnknownOperation = errors.New("ops: unknown operation")
)

type registered struct {
	provider Provider
	actions  map[string]OperationSpec
}

// Registry maps provider ids to providers and their declared actions.
// It is populated once at startup and read-only afterwards.
type Registry struct {
	items map[string]registered
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]registered)}
}

// ValidateMetadata requires all fields and a lowercase dotted id such as "engine" or "ops.engine".
func ValidateMetadata(meta Metadata) error {
	for field, v := range map[string]string{"id": meta.ID, "name": meta.Name, "description": meta.Description} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidMetadata, field)
		}
	}
	if !isValidID(meta.ID) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidMetadata, meta.ID)
	}
	return nil
}

func indexOperations(specs []OperationSpec) (map[string]OperationSpec, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: provider declares no operations", ErrInvalidOperation)
	}
	actions := make(map[string]OperationSpec, len(specs))
	for i, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" || name != spec.Name {
			return nil, fmt.Errorf("%w: operation[%d] name %q", ErrInvalidOperation, i, spec.Name)
		}
		if _, ok := actions[name]; ok {
			return nil, fmt.Errorf("%w: duplicate operation %q", ErrInvalidOperation, name)
		}
		actions[name] = spec
	}
	return actions, nil
}

// Register validates p's metadata and operation catalog and adds it.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return ErrProviderNil
	}
	meta := p.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	actions, err := indexOperations(p.Operations())
	if err != nil {
		return fmt.Errorf("provider %s: %w", meta.ID, err)
	}
	if _, ok := r.items[meta.ID]; ok {
		return fmt.Errorf("%w: %s", ErrProviderExists, meta.ID)
	}
	r.items[meta.ID] = registered{provider: p, actions: actions}
	return nil
}

func (r *Registry) Resolve(id string) (Provider, bool) {
	item, ok := r.items[strings.TrimSpace(id)]
	return item.provider, ok
}

// Execute checks that id declares action before handing args to the provider.
func (r *Registry) Execute(id, action string, args map[string]string) (Result, error) {
	id = strings.TrimSpace(id)
	item, ok := r.items[id]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownProvider, id)
		return usageResult(err), err
	}
	if _, ok := item.actions[action]; !ok {
		err := fmt.Errorf("%w: %s has no %q", ErrUnknownOperation, id, action)
		return usageResult(err), err
	}

	start := time.Now()
	res, err := item.provider.Execute(action, args)
	event := log.Debug()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.Str("provider", id).
		Str("action", action).
		Int32("exit", res.ExitCode).
		Dur("took", time.Since(start)).
		Msg("ops.Registry.Execute")
	return res, err
}

// ListMetadata returns metadata sorted by id.
func (r *Registry) ListMetadata() []Metadata {
	entries := r.Catalog()
	list := make([]Metadata, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.Metadata)
	}
	return list
}

// Catalog returns every provider with its operations, sorted by id then operation name.
func (r *Registry) Catalog() []Entry {
	entries := make([]Entry, 0, len(r.items))
	for _, item := range r.items {
		specs := make([]OperationSpec, 0, len(item.actions))
		for _, spec := range item.actions {
			specs = append(specs, spec)
		}
		sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
		entries = append(entries, Entry{Metadata: item.provider.Metadata(), Operations: specs})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Metadata.ID < entries[j].Metadata.ID })
	return entries
}

// isValidID accepts lowercase alphanumerics separated by single '.', '-' or '_'.
func isValidID(id string) bool {
	parts := strings.FieldsFunc(id, func(c rune) bool { return c == '.' || c == '-' || c == '_' })
	if len(parts) == 0 {
		return false
	}
	// FieldsFunc drops empty fields, so the lengths disagree on leading, trailing or doubled separators.
	if seps := len(parts) - 1; seps+lenAll(parts) != len(id) {
		return false
	}
	for _, part := range parts {
		for _, c := range part {
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
				return false
			}
		}
	}
	return true
}

func lenAll(parts []string) int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	return n
}
