package slicehelper

import "testing"

func TestExtend(t *testing.T) {
	in := make([]byte, 2, 8)
	in[0], in[1] = 1, 2

	head, tail := Extend(in, 4)
	if len(head) != 6 || len(tail) != 4 {
		t.Fatalf("len(head), len(tail) = %d, %d, want 6, 4", len(head), len(tail))
	}
	if &head[0] != &in[0] {
		t.Error("Extend allocated with enough capacity")
	}
	tail[0] = 3
	if head[2] != 3 {
		t.Error("tail does not alias head")
	}

	head, tail = Extend(head, 16)
	if len(head) != 22 || len(tail) != 16 {
		t.Fatalf("len(head), len(tail) = %d, %d, want 22, 16", len(head), len(tail))
	}
	if head[0] != 1 || head[1] != 2 || head[2] != 3 {
		t.Errorf("head[:3] = %v, want [1 2 3]", head[:3])
	}
}
