package seq

import "testing"

func TestDistanceWrapsAtHalfCircle(t *testing.T) {
	a := New(seqMask - 1)
	b := New(1)
	if d := Distance(a, b); d != 3 {
		t.Fatalf("expected wraparound distance 3, got %d", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a, b := New(100), New(150)
	if Distance(a, b) != -Distance(b, a) {
		t.Fatalf("expected distance(a,b) == -distance(b,a)")
	}
}

func TestBeforeAndCmp(t *testing.T) {
	a, b := New(100), New(101)
	if !Before(a, b) {
		t.Fatalf("expected %v before %v", a, b)
	}
	if Cmp(a, b) != -1 {
		t.Fatalf("expected Cmp(a,b)=-1, got %d", Cmp(a, b))
	}
	if Cmp(a, a) != 0 {
		t.Fatalf("expected Cmp(a,a)=0")
	}
}

func TestAddWrapsAt31Bits(t *testing.T) {
	s := New(seqMask)
	got := s.Add(1)
	if got.Value() != 0 {
		t.Fatalf("expected wraparound to 0, got %d", got.Value())
	}
}

func TestIncrDecrRoundTrip(t *testing.T) {
	s := New(42)
	if s.Incr().Decr() != s {
		t.Fatalf("expected Incr().Decr() to be identity")
	}
}

func TestInRange(t *testing.T) {
	lo, hi := New(100), New(110)
	if !InRange(lo, hi, New(105)) {
		t.Fatalf("expected 105 to be in [100, 110]")
	}
	if InRange(lo, hi, New(111)) {
		t.Fatalf("expected 111 to be outside [100, 110]")
	}
}
