package gotreesitter

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/npillmayer/schuko/tracing"
	"github.com/pterm/pterm"
)

// Debugger is an optional observer attached to a Parser via SetDebugger
// (spec §6 set_debugger/debugger; SPEC_FULL.md AMBIENT STACK). It logs one
// entry per driver iteration through a schuko/tracing.Trace, and renders a
// human-readable snapshot of the graph-structured stack through pterm on
// demand. Both are opt-in and cost nothing when no Debugger is attached,
// which is the common case (spec §9: "no global mutable state").
type Debugger struct {
	trace tracing.Trace

	snapshots  bool
	lastGraph  string
	iterations int
}

// NewDebugger creates a Debugger that logs through trace. trace may be nil,
// in which case logIteration only counts iterations and writes no log line;
// stack-graph snapshotting still works.
func NewDebugger(trace tracing.Trace) *Debugger {
	return &Debugger{trace: trace}
}

// EnableSnapshots turns on stack-graph snapshot capture. Off by default:
// walking and rendering the full GSS on every driver iteration is not free,
// and most callers attaching a Debugger only want the per-iteration log.
func (d *Debugger) EnableSnapshots(enabled bool) { d.snapshots = enabled }

// LastGraph returns the most recently rendered stack-graph snapshot, or ""
// if snapshots are disabled or none has been taken yet.
func (d *Debugger) LastGraph() string { return d.lastGraph }

// Iterations returns how many driver iterations this Debugger has observed.
func (d *Debugger) Iterations() int { return d.iterations }

// logIteration records one outer-loop step: which version was advanced and
// how many versions are currently live (spec §4.6's per-iteration trace
// point).
func (d *Debugger) logIteration(parser uuid.UUID, iteration, version, versionCount int) {
	d.iterations = iteration + 1
	if d.trace != nil {
		d.trace.Debugf("glr %s: iter=%d version=%d live=%d", parser, iteration, version, versionCount)
	}
	if d.snapshots {
		// snapshotting is wired in by the driver calling SnapshotStack
		// directly when it holds the stack; logIteration alone never sees
		// it, so there is nothing further to do here.
	}
}

// SnapshotStack renders the current graph-structured stack as a pterm tree,
// one branch per live version, and stores the result for LastGraph. The
// driver calls this once per iteration when EnableSnapshots is on (spec §9:
// "stack graph snapshot channel").
func (d *Debugger) SnapshotStack(s *Stack) {
	if d.trace != nil {
		d.trace.Infof("glr: snapshotting %d live version(s)", s.VersionCount())
	}
	var roots []pterm.TreeNode
	for v := 0; v < s.VersionCount(); v++ {
		if !s.Alive(v) {
			continue
		}
		roots = append(roots, pterm.TreeNode{
			Text:     fmt.Sprintf("v%d @ state %d", v, s.tops[v].state),
			Children: frameNodes(s.tops[v], make(map[*stackFrame]bool)),
		})
	}
	root := pterm.TreeNode{Text: "stack", Children: roots}
	text, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return
	}
	d.lastGraph = text
}

// frameNodes walks a frame's predecessors into pterm tree nodes, guarding
// against revisiting a frame two different versions already share (a merge
// join) so a snapshot of a heavily-merged stack still terminates.
func frameNodes(f *stackFrame, visited map[*stackFrame]bool) []pterm.TreeNode {
	if f == nil || len(f.preds) == 0 || visited[f] {
		return nil
	}
	visited[f] = true
	nodes := make([]pterm.TreeNode, 0, len(f.preds))
	for _, p := range f.preds {
		label := fmt.Sprintf("state %d", p.state)
		if p.tree != nil {
			label = fmt.Sprintf("%s (%s)", label, symbolLabel(p.tree))
		}
		nodes = append(nodes, pterm.TreeNode{Text: label, Children: frameNodes(p, visited)})
	}
	return nodes
}

func symbolLabel(n *Node) string {
	if n.HasError() {
		return fmt.Sprintf("sym=%d err=%d", n.Symbol(), n.ErrorSize())
	}
	return fmt.Sprintf("sym=%d", n.Symbol())
}

// Dump renders t as a sexp-style tree through pterm, for tests and the
// glrtrace CLI that want a human-readable view of a finished parse.
func Dump(t *Tree) string {
	if t == nil {
		return ""
	}
	root := pterm.TreeNode{Text: dumpSexp(t.RootNode())}
	text, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return ""
	}
	return text
}

func dumpSexp(n *Node) string {
	if n == nil {
		return "()"
	}
	if n.ChildCount() == 0 {
		return symbolLabel(n)
	}
	s := "(" + symbolLabel(n)
	for i := 0; i < n.ChildCount(); i++ {
		s += " " + dumpSexp(n.Child(i))
	}
	return s + ")"
}
