package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// ParseReplayLine reads one "sender: text" log line. Blank lines and lines
// starting with '#' are skipped.
func ParseReplayLine(line string) (from, text string, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	from, text, ok = strings.Cut(line, ": ")
	if !ok || strings.TrimSpace(from) == "" {
		return "", "", false
	}
	return strings.TrimSpace(from), text, true
}

// Replay delivers every line of r through lb. target is asked before each
// line so that messages go to the room channel once it is known and to the
// bot privately before that. It returns the number of delivered lines.
func (lb *Loopback) Replay(ctx context.Context, r io.Reader, target func() string, interval time.Duration) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		from, text, ok := ParseReplayLine(sc.Text())
		if !ok {
			continue
		}
		if interval > 0 {
			select {
			case <-ctx.Done():
				return n, ctx.Err()
			case <-time.After(interval):
			}
		} else if err := ctx.Err(); err != nil {
			return n, err
		}

		to := lb.nick
		if target != nil {
			if t := target(); t != "" {
				to = t
			}
		}
		lb.Deliver(from, to, text)
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("transport: replay: %w", err)
	}
	return n, nil
}
