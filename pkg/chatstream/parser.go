package chatstream

import (
	"encoding/json"
	"errors"

	"github.com/papercomputeco/fleet/pkg/sse"
)

// ParseResult classifies a line handed to ParseLine.
type ParseResult int

const (
	// ParseIgnored is a line that is not a data frame.
	ParseIgnored ParseResult = iota

	// ParseEvent is a data frame holding a well formed event.
	ParseEvent

	// ParseSentinel is the "[DONE]" terminator.
	ParseSentinel

	// ParseDropped is a data frame whose payload could not be decoded.
	ParseDropped
)

var errMissingType = errors.New("event has no type")

// ParseLine classifies one complete line of the stream. The returned error is
// only set for ParseDropped and describes why the payload was rejected.
//
// A payload is dropped when it is not valid JSON, and also when it is valid
// JSON without a "type" field, such as "data: null" or "data: {}". Such a
// payload carries no discriminator a handler could act on.
func ParseLine(line string) (Event, ParseResult, error) {
	payload, ok := sse.DataPayload(line)
	if !ok {
		return Event{}, ParseIgnored, nil
	}

	if sse.IsSentinel(payload) {
		return Event{}, ParseSentinel, nil
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, ParseDropped, err
	}

	if ev.Type == "" {
		return Event{}, ParseDropped, errMissingType
	}

	return ev, ParseEvent, nil
}
