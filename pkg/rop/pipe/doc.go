// Package pipe is a bounded multi-producer, single-consumer handoff.
//
// New returns the first Sender and the only Receiver. Producers Clone the
// sender, one per producing goroutine, and Close their copy when they have
// nothing more to publish. The receiver sees end of stream only after every
// sender has been closed and the buffer is empty.
//
// Delivery preserves publish order per sender. Interleaving across senders is
// unspecified.
package pipe
