package gotreesitter

import "testing"

func leaf(sym Symbol) *Node {
	return NewLeafNode(Token{Symbol: sym, Size: Length{Chars: 1, Bytes: 1}}, true)
}

func TestStackPushAndTop(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()

	s.Push(0, leaf(1), true, 1, Length{Chars: 1, Bytes: 1})
	if s.TopState(0) != 1 {
		t.Fatalf("TopState = %d, want 1", s.TopState(0))
	}
	if !s.TopPending(0) {
		t.Fatalf("TopPending = false, want true")
	}
	if s.TopPosition(0).Chars != 1 {
		t.Fatalf("TopPosition = %+v, want 1 char", s.TopPosition(0))
	}
}

func TestStackPopCountSimpleChain(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()

	a, b, c := leaf(1), leaf(2), leaf(3)
	s.Push(0, a, true, 1, Length{Chars: 1, Bytes: 1})
	s.Push(0, b, true, 2, Length{Chars: 2, Bytes: 2})
	s.Push(0, c, true, 3, Length{Chars: 3, Bytes: 3})

	results := s.PopCount(0, 2)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1 (no joins on a plain chain)", len(results))
	}
	r := results[0]
	if r.Status != PopOK {
		t.Fatalf("Status = %v, want PopOK", r.Status)
	}
	if len(r.Trees) != 2 || r.Trees[0] != b || r.Trees[1] != c {
		t.Fatalf("Trees = %v, want [b c] oldest-first", r.Trees)
	}
}

func TestStackPopCountFailsPastRoot(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()
	s.Push(0, leaf(1), true, 1, Length{Chars: 1, Bytes: 1})

	results := s.PopCount(0, 5)
	if len(results) != 1 || results[0].Status != PopFailed {
		t.Fatalf("results = %+v, want a single PopFailed", results)
	}
}

func TestStackPopCountAboveMergedFrameDoesNotBranch(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()

	// Build two versions that both reach the same state/position so Merge
	// joins their frames, then push one more frame on top; popping only that
	// frame stays above the merged frame and so yields a single PopResult.
	s.Push(0, leaf(1), true, 1, Length{Chars: 1, Bytes: 1})
	v1 := s.DuplicateVersion(0)
	_ = v1

	if !s.Merge(0, v1) {
		t.Fatalf("Merge of two identical-state/position versions should succeed")
	}

	s.Push(0, leaf(2), true, 2, Length{Chars: 2, Bytes: 2})
	results := s.PopCount(0, 1)
	if len(results) != 1 {
		t.Fatalf("popping one frame above the join should not yet branch, got %d results", len(results))
	}
}

func TestStackDuplicateAndRemoveVersion(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()

	v1 := s.DuplicateVersion(0)
	if s.VersionCount() != 2 {
		t.Fatalf("VersionCount = %d, want 2", s.VersionCount())
	}
	if s.TopState(v1) != s.TopState(0) {
		t.Fatalf("duplicated version should share the same top state")
	}

	s.RemoveVersion(v1)
	if s.Alive(v1) {
		t.Fatalf("removed version should not be Alive")
	}
}

func TestStackCondenseCompactsHoles(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()

	v1 := s.DuplicateVersion(0)
	v2 := s.DuplicateVersion(0)
	s.RemoveVersion(v1)

	mapping := s.Condense()
	if s.VersionCount() != 2 {
		t.Fatalf("VersionCount after Condense = %d, want 2", s.VersionCount())
	}
	if _, ok := mapping[v1]; ok {
		t.Fatalf("mapping should not contain the removed version %d", v1)
	}
	if _, ok := mapping[v2]; !ok {
		t.Fatalf("mapping should contain the surviving version %d", v2)
	}
}

func TestStackMergeRejectsMismatchedState(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()

	v1 := s.DuplicateVersion(0)
	s.Push(v1, leaf(1), true, 9, Length{Chars: 1, Bytes: 1})

	if s.Merge(0, v1) {
		t.Fatalf("Merge should fail when top states differ")
	}
}
