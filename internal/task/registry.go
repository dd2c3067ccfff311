package task

import (
	"log/slog"
	"slices"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Registry holds named tasks and resolves dependency-respecting execution orders.
// It is populated at startup and read-only afterwards.
type Registry struct {
	tasks map[string]Task
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds a task. Dependencies may reference tasks registered later; they
// are checked by Validate and ResolveOrder.
func (r *Registry) Register(t Task) error {
	if t.Name == "" {
		return ferrors.ValidationError("task name cannot be empty").Build()
	}
	if t.Action == nil {
		return ferrors.ValidationError("task action cannot be nil").
			ForTask(t.Name).
			Build()
	}
	if _, exists := r.tasks[t.Name]; exists {
		return &DuplicateTaskError{Name: t.Name}
	}
	if t.Kind == "" {
		t.Kind = KindGeneric
	}
	t.Deps = slices.Clone(t.Deps)
	t.Inputs = slices.Clone(t.Inputs)

	r.tasks[t.Name] = t
	r.order = append(r.order, t.Name)
	slog.Debug("Task registered", logfields.Task(t.Name), slog.Any("deps", t.Deps))
	return nil
}

// Get returns a registered task.
func (r *Registry) Get(name string) (Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns task names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Validate resolves every registered task, surfacing unknown dependencies and
// cycles before any build runs.
func (r *Registry) Validate() error {
	_, err := r.ResolveOrder(r.order)
	return err
}

// ResolveOrder returns names expanded with their transitive dependencies so that
// every dependency precedes its dependents and each task appears once.
// Unrelated tasks keep the order in which they were requested.
func (r *Registry) ResolveOrder(names []string) ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.tasks))
	order := make([]string, 0, len(names))
	var stack []string

	var visit func(name, requiredBy string) error
	visit = func(name, requiredBy string) error {
		t, ok := r.tasks[name]
		if !ok {
			return &UnknownTaskError{Name: name, RequiredBy: requiredBy}
		}
		switch state[name] {
		case done:
			return nil
		case visiting:
			start := slices.Index(stack, name)
			cycle := append(slices.Clone(stack[start:]), name)
			return &CyclicDependencyError{Cycle: cycle}
		}

		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range t.Deps {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	return order, nil
}
