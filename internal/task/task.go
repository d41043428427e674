// Package task defines the units of work the workflow is built from and
// the scheduler that runs them.
//
// A Task is a single named action. A Composite runs its members either in
// strict order (Series) or all at once (Parallel). Tasks carry no
// dependency list; ordering comes only from the composite they sit in.
package task

import (
	"context"
	"strings"
)

// Kind selects how the scheduler treats a failing task.
type Kind int

const (
	// KindFatal tasks abort the surrounding composite on error.
	KindFatal Kind = iota
	// KindStream tasks are file transforms: their errors are reported and
	// the surrounding composite carries on.
	KindStream
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Action is the body of a task.
type Action func(ctx context.Context) error

// Node is a Task or a Composite.
type Node interface {
	Name() string
}

// Task is a named action.
type Task struct {
	name   string
	kind   Kind
	action Action
}

// New creates a fatal task.
func New(name string, action Action) *Task {
	return &Task{name: name, kind: KindFatal, action: action}
}

// Stream creates a stream task whose errors are tolerated.
func Stream(name string, action Action) *Task {
	return &Task{name: name, kind: KindStream, action: action}
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Kind returns the task kind.
func (t *Task) Kind() Kind { return t.kind }

// Mode is the execution mode of a Composite.
type Mode int

const (
	ModeSeries Mode = iota
	ModeParallel
)

// String returns the string representation of the Mode
func (m Mode) String() string {
	if m == ModeParallel {
		return "parallel"
	}
	return "series"
}

// Composite groups nodes. Its members are fixed at construction.
type Composite struct {
	name    string
	mode    Mode
	members []Node
}

// Series runs members one after another. Member i+1 starts only after
// member i has finished.
func Series(name string, members ...Node) *Composite {
	return &Composite{name: name, mode: ModeSeries, members: append([]Node(nil), members...)}
}

// Parallel starts all members together and joins on all of them.
func Parallel(name string, members ...Node) *Composite {
	return &Composite{name: name, mode: ModeParallel, members: append([]Node(nil), members...)}
}

// Name returns the composite name.
func (c *Composite) Name() string { return c.name }

// Mode returns the execution mode.
func (c *Composite) Mode() Mode { return c.mode }

// Members returns a copy of the members.
func (c *Composite) Members() []Node {
	return append([]Node(nil), c.members...)
}

// Describe renders node and its members as an indented tree.
func Describe(node Node) string {
	var b strings.Builder
	describe(&b, node, 0)
	return b.String()
}

func describe(b *strings.Builder, node Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(node.Name())
	switch n := node.(type) {
	case *Task:
		b.WriteString(" (" + n.kind.String() + ")\n")
	case *Composite:
		b.WriteString(" [" + n.mode.String() + "]\n")
		for _, m := range n.members {
			describe(b, m, depth+1)
		}
	default:
		b.WriteString("\n")
	}
}
