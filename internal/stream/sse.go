// Package stream encodes recipe fragments as server-sent events and decodes
// them on the client side.
//
// Each fragment is one event whose data is "<part>|<content>". Generated
// content marks line breaks with the ⮑ sentinel; Render turns it into
// newlines for display. Newlines inside data are split across data lines
// and a bare carriage return is escaped as the two characters \r.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gin-contrib/sse"
)

// Sentinel marks a logical line break inside generated content
const Sentinel = "⮑"

// EventError names the terminal event sent when a generation fails
const EventError = "error"

// Event is one decoded server-sent event
type Event struct {
	Name string
	Data string
}

// ContentType is the media type of an event stream response
const ContentType = sse.ContentType

// WriteFragment writes a fragment as a data-only event
func WriteFragment(w io.Writer, part, content string) error {
	return sse.Encode(w, sse.Event{Data: part + "|" + content})
}

// WriteError writes the terminal error event
func WriteError(w io.Writer, code, message string) error {
	return sse.Encode(w, sse.Event{Event: EventError, Data: code + "|" + message})
}

// ParsePayload splits "<part>|<content>" at the first separator
func ParsePayload(data string) (part, content string, err error) {
	part, content, ok := strings.Cut(data, "|")
	if !ok || part == "" {
		return "", "", fmt.Errorf("malformed fragment payload %q", data)
	}
	return part, content, nil
}

// Render turns the line-break sentinel into newlines; a doubled sentinel
// becomes a paragraph break
func Render(content string) string {
	return strings.ReplaceAll(content, Sentinel, "\n")
}

// Reader decodes server-sent events from a stream
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader over r
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next event, or io.EOF when the stream ends
func (r *Reader) Next() (Event, error) {
	var (
		event   Event
		data    []string
		hasData bool
	)
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if hasData {
				event.Data = strings.Join(data, "\n")
				return event, nil
			}
			event = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event.Name = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	if hasData {
		event.Data = strings.Join(data, "\n")
		return event, nil
	}
	return Event{}, io.EOF
}
