// Package offload runs CPU-heavy closures (password hashing, mostly) on a
// bounded number of slots so request goroutines never compete for all cores
// at once.
//
// When every slot is busy, callers wait in FIFO order. Nothing is dropped.
// A caller whose context ends while waiting gets ctx.Err() and its closure
// never runs. A caller whose context ends while its closure runs gets
// ctx.Err() immediately; the closure still runs to completion, releases its
// slot and its result is discarded.
//
// A panic inside a closure is recovered and reported as a *PanicError.
package offload
