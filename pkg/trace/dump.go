package trace

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const eventSize = 8

// WriteEvents writes the events as little endian 64-bit words.
func WriteEvents(w io.Writer, events []Event) error {
	if err := binary.Write(w, binary.LittleEndian, events); err != nil {
		return errors.Wrap(err, "failed to write events")
	}

	return nil
}

// ReadEvents reads a dump produced by WriteEvents.
func ReadEvents(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read events")
	}
	if len(data)%eventSize != 0 {
		return nil, errors.Wrapf(ErrDumpTruncated, "%d trailing bytes", len(data)%eventSize)
	}

	events := make([]Event, 0, len(data)/eventSize)
	for i := 0; i < len(data); i += eventSize {
		events = append(events, Event(binary.LittleEndian.Uint64(data[i:i+eventSize])))
	}

	return events, nil
}
