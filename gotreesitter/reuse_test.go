package gotreesitter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestParseIncrementalReuseSoundness is spec §8's Reuse soundness property:
// reparsing with a previous tree offered for reuse must produce the same
// tree a from-scratch parse of the edited text would, regardless of which
// nodes the cursor actually managed to reuse along the way.
func TestParseIncrementalReuseSoundness(t *testing.T) {
	lang := miniLanguage()
	p := NewParser(lang)

	original := []byte("a b")
	tree, err := p.Parse(original, nil)
	if err != nil {
		t.Fatalf("initial parse failed: %v", err)
	}

	// Widen the single space between "a" and "b" into two spaces: a pure
	// whitespace edit that changes no token's symbol, only its padding.
	tree.Edit(InputEdit{
		StartByte: 1, OldEndByte: 2, NewEndByte: 3,
	})
	edited := []byte("a  b")

	incremental, err := p.Parse(edited, tree)
	if err != nil {
		t.Fatalf("incremental parse failed: %v", err)
	}
	fresh, err := p.Parse(edited, nil)
	if err != nil {
		t.Fatalf("fresh parse failed: %v", err)
	}

	if diff := cmp.Diff(dumpSexp(fresh.RootNode()), dumpSexp(incremental.RootNode())); diff != "" {
		t.Fatalf("incremental parse diverged from a fresh parse of the same text (-fresh +incremental):\n%s", diff)
	}
	if got := incremental.RootNode().TotalChars(); got != uint32(len(edited)) {
		t.Fatalf("incremental TotalChars = %d, want %d", got, len(edited))
	}
}
