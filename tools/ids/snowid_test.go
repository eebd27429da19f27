package ids

import (
	"testing"
	"time"
)

func TestGeneratorMonotonicUnderFrozenClock(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(7, func() time.Time { return frozen })

	seen := make(map[int64]struct{})
	var last int64
	for i := 0; i < 10000; i++ {
		id := g.Next()
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
		last = id
	}
}

func TestGeneratorClockBackwards(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(1, func() time.Time { return now })
	a := g.Next()
	now = now.Add(-time.Second)
	b := g.Next()
	if b <= a {
		t.Fatalf("ids went backwards: %d then %d", a, b)
	}
}

func TestNodeIDEncoded(t *testing.T) {
	g := NewGenerator(513, nil)
	id := g.Next()
	if node := (id >> seqBits) & maxNode; node != 513 {
		t.Fatalf("node = %d", node)
	}
}
