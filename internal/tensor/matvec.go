package tensor

import (
	"runtime"
	"sync"
)

// minRowsPerWorker keeps small products on the calling goroutine.
const minRowsPerWorker = 256

type matVecTask struct {
	dst    []float32
	w      *Mat
	x      []float32
	bias   []float32
	rs, re int
	done   chan struct{}
}

type matVecPool struct {
	size      int
	tasks     chan matVecTask
	doneSlots chan chan struct{}
}

var (
	matVecWorkPool *matVecPool
	matVecPoolOnce sync.Once
)

func getMatVecPool() *matVecPool {
	matVecPoolOnce.Do(func() {
		matVecWorkPool = newMatVecPool()
	})
	return matVecWorkPool
}

func newMatVecPool() *matVecPool {
	size := max(runtime.GOMAXPROCS(0), 1)
	p := &matVecPool{
		size:      size,
		tasks:     make(chan matVecTask, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.doneSlots <- make(chan struct{}, size)
	}
	for i := 0; i < size; i++ {
		go func() {
			for task := range p.tasks {
				matVecRange(task.dst, task.w, task.x, task.bias, task.rs, task.re)
				task.done <- struct{}{}
			}
		}()
	}
	return p
}

// MatVec computes dst = w * x (+ bias when bias is non-nil). Large matrices
// are split across a shared worker pool.
func MatVec(dst []float32, w *Mat, x, bias []float32) {
	if w.R == 0 {
		return
	}
	if len(dst) < w.R || len(x) < w.C || (bias != nil && len(bias) < w.R) {
		panic("matvec shape mismatch")
	}

	pool := getMatVecPool()
	workers := min(pool.size, w.R/minRowsPerWorker)
	if workers <= 1 {
		matVecRange(dst, w, x, bias, 0, w.R)
		return
	}

	chunk := (w.R + workers - 1) / workers
	done := <-pool.doneSlots

	active := 0
	for i := 0; i < workers; i++ {
		rs := i * chunk
		re := min(rs+chunk, w.R)
		if rs >= re {
			break
		}
		active++
		pool.tasks <- matVecTask{dst: dst, w: w, x: x, bias: bias, rs: rs, re: re, done: done}
	}
	for i := 0; i < active; i++ {
		<-done
	}
	pool.doneSlots <- done
}

func matVecRange(dst []float32, w *Mat, x, bias []float32, rs, re int) {
	x = x[:w.C]
	for i := rs; i < re; i++ {
		sum := Dot(w.Row(i), x)
		if bias != nil {
			sum += bias[i]
		}
		dst[i] = sum
	}
}
