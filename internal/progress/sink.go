// Package progress models the line-oriented progress stream emitted during a
// long-running crawl. The orchestrator and fetcher stay decoupled from any
// particular output transport by writing through the Sink interface.
package progress

// Sink consumes human-readable progress lines. Implementations must be safe
// for repeated calls from a single crawl goroutine.
type Sink interface {
	Line(text string)
}

// Nop discards all progress lines.
type Nop struct{}

// Line implements Sink.
func (Nop) Line(string) {}

// Func adapts a plain function to the Sink interface.
type Func func(text string)

// Line implements Sink.
func (f Func) Line(text string) { f(text) }

// Multi fans one line out to several sinks in order.
type Multi []Sink

// Line implements Sink.
func (m Multi) Line(text string) {
	for _, s := range m {
		if s != nil {
			s.Line(text)
		}
	}
}
