package honeycomb

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/honeycombio/libhoney-go/transmission"

	"github.com/circleci/rfapi/colourise"
)

// TextSender writes each event as one line of text for a developer's terminal:
//
//	15:04:05 <last 5 of trace id> <duration>ms <name> key=value...
//
// Keys are sorted. Fields that are the same on every line, or only useful in
// honeycomb itself, are left out.
type TextSender struct {
	w      io.Writer
	colour bool

	mu        sync.Mutex
	responses chan transmission.Response
}

// hiddenFields are never printed. Keys under trace. and meta. are hidden too.
var hiddenFields = map[string]bool{
	"name":        true,
	"duration_ms": true,
	"service":     true,
	"version":     true,
	"mode":        true,
}

func (t *TextSender) Start() error {
	t.responses = make(chan transmission.Response, 100)
	return nil
}

func (t *TextSender) Stop() error  { return nil }
func (t *TextSender) Flush() error { return nil }

func (t *TextSender) Add(ev *transmission.Event) {
	line := t.line(ev)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.w, line)
	t.SendResponse(transmission.Response{Metadata: ev.Metadata})
}

func (t *TextSender) TxResponses() chan transmission.Response {
	return t.responses
}

// SendResponse never blocks; it reports true when the response was dropped.
func (t *TextSender) SendResponse(r transmission.Response) bool {
	select {
	case t.responses <- r:
		return false
	default:
		return true
	}
}

func (t *TextSender) line(ev *transmission.Event) string {
	var b strings.Builder
	b.WriteString(ev.Timestamp.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(t.hashed(shortTraceID(ev.Data["trace.trace_id"])))
	_, _ = fmt.Fprintf(&b, " %.3fms ", ev.Data["duration_ms"])
	b.WriteString(t.hashed(fmt.Sprint(ev.Data["name"])))

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		if !hidden(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, _ = fmt.Fprintf(&b, " %s=%v", t.key(k), ev.Data[k])
	}
	b.WriteByte('\n')
	return b.String()
}

func hidden(k string) bool {
	return hiddenFields[k] || strings.HasPrefix(k, "trace.") || strings.HasPrefix(k, "meta.")
}

// key highlights the error and warning fields so they stand out in colour mode.
func (t *TextSender) key(k string) string {
	switch {
	case !t.colour:
		return k
	case k == "error":
		return colourise.ErrorHighlight(k)
	case k == "warning":
		return colourise.WarningHighlight(k)
	default:
		return k
	}
}

// hashed gives each distinct value a stable colour, so lines from one trace,
// or spans of one name, are easy to pick out.
func (t *TextSender) hashed(s string) string {
	if !t.colour {
		return s
	}
	return colourise.ApplyColour(s)
}

func shortTraceID(v interface{}) string {
	id, _ := v.(string)
	if len(id) < 5 {
		return "unkwn"
	}
	return id[len(id)-5:]
}
