package trace

import "fmt"

// Direction tells whether an event marks a function boundary on the way in or out.
type Direction uint8

const (
	Exit Direction = iota
	Enter
)

func (d Direction) String() string {
	if d == Enter {
		return "enter"
	}
	return "exit"
}

const (
	// FuncIDMax is the first function id that does not fit the event encoding.
	FuncIDMax uint32 = 0xFFFFF

	// FuncIDDispatch is the reserved function id marking a main loop dispatch.
	FuncIDDispatch = FuncIDMax - 1

	// TimeMax is the largest relative timestamp (ms) an event can carry.
	TimeMax uint64 = 0x7FFFFFFFFFF

	dirShift    = 63
	funcIDShift = 43
)

// Event is a packed trace event.
//
//	bit 63:     direction (1 enter, 0 exit)
//	bits 62-43: function id
//	bits 42-0:  relative timestamp in milliseconds
//
// The zero value is an empty buffer slot.
type Event uint64

// NewEvent packs a direction, a function id and a relative timestamp into an Event.
func NewEvent(dir Direction, id uint32, ms uint64) Event {
	e := Event(uint64(id&FuncIDMax)<<funcIDShift | ms&TimeMax)
	if dir == Enter {
		e |= 1 << dirShift
	}

	return e
}

func (e Event) IsEnter() bool {
	return (e>>dirShift)&1 == 1
}

func (e Event) Direction() Direction {
	if e.IsEnter() {
		return Enter
	}
	return Exit
}

func (e Event) FuncID() uint32 {
	return uint32(uint64(e)>>funcIDShift) & FuncIDMax
}

func (e Event) Time() uint64 {
	return uint64(e) & TimeMax
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d,%d)", e.Direction(), e.FuncID(), e.Time())
}
