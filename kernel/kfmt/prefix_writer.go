package kfmt

import "io"

// PrefixWriter is an io.Writer that tags every line written to Sink with
// Prefix. Drivers use it during initialization so their output is attributed
// to them on the console.
type PrefixWriter struct {
	// Sink receives the prefixed output.
	Sink io.Writer

	// Prefix is written at the start of each line.
	Prefix []byte

	// midLine is true when the last byte written was not a line feed.
	midLine bool
}

// Write sends p to the sink, inserting the prefix before the first byte of
// every line. The returned count excludes prefix bytes.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written, lineStart int

	for lineStart < len(p) {
		if !w.midLine {
			if _, err := w.Sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		lineEnd := len(p)
		for i := lineStart; i < len(p); i++ {
			if p[i] == '\n' {
				lineEnd = i + 1
				w.midLine = false
				break
			}
		}

		n, err := w.Sink.Write(p[lineStart:lineEnd])
		written += n
		if err != nil {
			return written, err
		}
		lineStart = lineEnd
	}

	return written, nil
}
