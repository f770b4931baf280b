package progress

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// LogSink forwards progress lines to a structured logger. Useful when the
// crawl runs inside the server and lines should land in the service log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the Sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Line implements Sink.
func (s *LogSink) Line(text string) {
	s.logger.Info("crawl progress", zap.String("line", text))
}

// WriterSink writes one line per call to an io.Writer, typically stdout for
// interactive crawls.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Line implements Sink. Write errors are ignored; progress output is best
// effort and must never interrupt a crawl.
func (s *WriterSink) Line(text string) {
	fmt.Fprintln(s.w, text)
}
