// Package providers holds the work-execution providers the railyard CLI
// wires into a pool.Router: socket reads, matrix inference, file I/O and
// message echo. Each provider honours its context and returns promptly
// once it is done.
package providers
