package main

import (
	"bufio"
	"io"
	"strings"
)

// event is one dispatched SSE message.
type event struct {
	name      string
	data      string
	heartbeat bool
}

// readEvents parses an SSE body and calls fn once per blank-line terminated
// message. Comment-only messages are reported as heartbeats.
func readEvents(r io.Reader, fn func(event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cur     event
		comment bool
		pending bool
	)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case line == "":
			if pending {
				cur.heartbeat = comment && cur.name == "" && cur.data == ""
				fn(cur)
			}
			cur, comment, pending = event{}, false, false
		case strings.HasPrefix(line, ":"):
			comment, pending = true, true
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			pending = true
		case strings.HasPrefix(line, "data:"):
			if cur.data != "" {
				cur.data += "\n"
			}
			cur.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			pending = true
		}
	}

	return scanner.Err()
}
