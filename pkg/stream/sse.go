package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// WriteSSE encodes the event as one server-sent-events frame and flushes it,
// so the client sees tokens as they are produced rather than on buffer
// boundaries.
func WriteSSE(w *bufio.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// WriteSSEComment emits a comment frame, used as a heartbeat to keep proxies
// from closing an idle stream.
func WriteSSEComment(w *bufio.Writer, comment string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", comment); err != nil {
		return err
	}
	return w.Flush()
}
