package tensor

import (
	"math"
	"testing"
)

func matVecNaive(dst []float32, w *Mat, x, bias []float32) {
	for i := 0; i < w.R; i++ {
		var sum float32
		for j := 0; j < w.C; j++ {
			sum += w.Row(i)[j] * x[j]
		}
		if bias != nil {
			sum += bias[i]
		}
		dst[i] = sum
	}
}

func maxAbsDiff(a, b []float32) float64 {
	var maxAbs float64
	for i := range a {
		d := math.Abs(float64(a[i] - b[i]))
		if d > maxAbs {
			maxAbs = d
		}
	}
	return maxAbs
}

func TestMatVecMatchesNaive(t *testing.T) {
	for _, rows := range []int{1, 7, minRowsPerWorker*3 + 5} {
		w := NewMat(rows, 37)
		FillRand(&w, int64(rows))
		xm := NewMat(1, 37)
		FillRand(&xm, 99)
		bm := NewMat(1, rows)
		FillRand(&bm, 7)

		want := make([]float32, rows)
		got := make([]float32, rows)
		matVecNaive(want, &w, xm.Data, bm.Data)
		MatVec(got, &w, xm.Data, bm.Data)
		if d := maxAbsDiff(want, got); d > 1e-4 {
			t.Fatalf("rows=%d: max abs diff %g", rows, d)
		}

		matVecNaive(want, &w, xm.Data, nil)
		MatVec(got, &w, xm.Data, nil)
		if d := maxAbsDiff(want, got); d > 1e-4 {
			t.Fatalf("rows=%d without bias: max abs diff %g", rows, d)
		}
	}
}

func TestMatVecConcurrentCallers(t *testing.T) {
	w := NewMat(minRowsPerWorker*4, 16)
	FillRand(&w, 1)
	x := make([]float32, 16)
	for i := range x {
		x[i] = 1
	}
	want := make([]float32, w.R)
	matVecNaive(want, &w, x, nil)

	errs := make(chan float64, 8)
	for g := 0; g < 8; g++ {
		go func() {
			got := make([]float32, w.R)
			MatVec(got, &w, x, nil)
			errs <- maxAbsDiff(want, got)
		}()
	}
	for g := 0; g < 8; g++ {
		if d := <-errs; d > 1e-4 {
			t.Fatalf("max abs diff %g", d)
		}
	}
}

func TestMatVecShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	w := NewMat(2, 3)
	MatVec(make([]float32, 1), &w, make([]float32, 3), nil)
}

func TestNewMatFromData(t *testing.T) {
	m, err := NewMatFromData(2, 2, []float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewMatFromData: %v", err)
	}
	if got := m.Row(1); got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected row %v", got)
	}
	if _, err := NewMatFromData(2, 3, []float32{1}); err == nil {
		t.Fatalf("expected shape error")
	}
}

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5}
	b := []float32{5, 4, 3, 2, 1}
	if got := Dot(a, b); got != 35 {
		t.Fatalf("Dot = %v, want 35", got)
	}
	dst := []float32{1, 1}
	Add(dst, []float32{2, 3})
	if dst[0] != 3 || dst[1] != 4 {
		t.Fatalf("Add = %v", dst)
	}
}
