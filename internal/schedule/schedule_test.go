package schedule

import "testing"

func TestRemainingCosineSequence(t *testing.T) {
	t.Parallel()

	// 32 positions over 4 iterations: counts follow round(cos(pi/2 * i/4) * 32).
	want := []int{30, 23, 12, 0}
	for i := 1; i <= 4; i++ {
		got := Remaining(32, i, 4, Cosine)
		if got != want[i-1] {
			t.Fatalf("iteration %d: got %d, want %d", i, got, want[i-1])
		}
	}
}

func TestRemainingNonIncreasingAndTerminal(t *testing.T) {
	t.Parallel()

	for _, iters := range []int{1, 2, 5, 24, 100} {
		prev := Remaining(1000, 0, iters, Cosine)
		for i := 1; i <= iters; i++ {
			cur := Remaining(1000, i, iters, Cosine)
			if cur > prev {
				t.Fatalf("iters=%d: count increased at %d: %d > %d", iters, i, cur, prev)
			}
			prev = cur
		}
		if final := Remaining(1000, iters, iters, Cosine); final != 0 {
			t.Fatalf("iters=%d: final count %d, want 0", iters, final)
		}
	}
}

func TestRemainingSingleIteration(t *testing.T) {
	t.Parallel()

	// One iteration degenerates to a single full-grid pass: nothing stays masked.
	if got := Remaining(64, 1, 1, Cosine); got != 0 {
		t.Fatalf("single-iteration remaining = %d, want 0", got)
	}
}

func TestRemainingClamps(t *testing.T) {
	t.Parallel()

	if got := Remaining(10, 0, 4, Cosine); got != 10 {
		t.Fatalf("iteration 0 should keep everything masked, got %d", got)
	}
	if got := Remaining(0, 1, 4, Cosine); got != 0 {
		t.Fatalf("zero positions must yield 0, got %d", got)
	}
	if got := Remaining(10, -3, 4, Cosine); got != 10 {
		t.Fatalf("negative iteration should clamp to start, got %d", got)
	}
}

func TestLinearCurve(t *testing.T) {
	t.Parallel()

	if got := Remaining(100, 1, 4, Linear); got != 75 {
		t.Fatalf("linear at 1/4: got %d, want 75", got)
	}
	if got := Remaining(100, 3, 4, Linear); got != 25 {
		t.Fatalf("linear at 3/4: got %d, want 25", got)
	}
}

func TestParseCurve(t *testing.T) {
	t.Parallel()

	if _, err := ParseCurve("cosine"); err != nil {
		t.Fatalf("cosine: %v", err)
	}
	if _, err := ParseCurve(""); err != nil {
		t.Fatalf("default: %v", err)
	}
	if _, err := ParseCurve("linear"); err != nil {
		t.Fatalf("linear: %v", err)
	}
	if _, err := ParseCurve("bogus"); err == nil {
		t.Fatal("expected error for unknown curve")
	}
}
