package dbuf

import (
	param "github.com/SmartGraph/smgparam"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// Doublebuffer for CW log events. Not concurrently safe - the calling
// goroutine (the uploader loop) provides the required serialisation.

type logEventBuf struct {
	buf []types.InputLogEvent
	idx int
}

type EvDBuf struct {
	w   uint // write buffer index
	buf [2]*logEventBuf
}

func New() *EvDBuf {
	bufA := make([]types.InputLogEvent, param.CWLogLoadSize, param.CWLogLoadSize)
	bufB := make([]types.InputLogEvent, param.CWLogLoadSize, param.CWLogLoadSize)

	return &EvDBuf{buf: [2]*logEventBuf{{buf: bufA}, {buf: bufB}}}
}

// Swap exchanges write and read buffers and clears the new write buffer.
func (eb *EvDBuf) Swap() {
	switch eb.w {
	case 0:
		eb.w = 1
	case 1:
		eb.w = 0
	}
	b := eb.buf[eb.w]
	b.idx = 0
}

// Write appends to the write buffer and returns its fill level.
func (eb *EvDBuf) Write(e *types.InputLogEvent) int {
	b := eb.buf[eb.w]
	b.buf[b.idx] = *e
	b.idx++
	return b.idx
}

// Read returns the read buffer (the one not being written to).
func (eb *EvDBuf) Read() []types.InputLogEvent {
	d := eb.buf[eb.ridx()]
	return d.buf[:d.idx]
}

// WriteBuf returns the fill level of the write buffer.
func (eb *EvDBuf) WriteBuf() int {
	return eb.buf[eb.w].idx
}

func (eb *EvDBuf) ridx() uint {
	switch eb.w {
	case 0:
		return 1
	}
	return 0
}
