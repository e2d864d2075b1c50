package logstore

import (
	"encoding/binary"
	"errors"

	"github.com/rzbill/logbook/internal/model"
)

// Header layout: ts(8B BE) | level(2B BE) | flags(1B) | uvarint tagLen | tag.
const (
	headerFixedLen = 8 + 2 + 1

	flagCompressed byte = 1 << 0
)

var errBadHeader = errors.New("logstore: malformed header")

type header struct {
	ts    int64
	level model.Level
	flags byte
	tag   string
}

func (h header) compressed() bool { return h.flags&flagCompressed != 0 }

func encodeHeader(h header) []byte {
	out := make([]byte, 0, headerFixedLen+binary.MaxVarintLen32+len(h.tag))
	out = binary.BigEndian.AppendUint64(out, uint64(h.ts))
	out = binary.BigEndian.AppendUint16(out, uint16(h.level))
	out = append(out, h.flags)
	out = binary.AppendUvarint(out, uint64(len(h.tag)))
	return append(out, h.tag...)
}

func decodeHeader(b []byte) (header, error) {
	if len(b) < headerFixedLen+1 {
		return header{}, errBadHeader
	}
	h := header{
		ts:    int64(binary.BigEndian.Uint64(b[0:8])),
		level: model.Level(binary.BigEndian.Uint16(b[8:10])),
		flags: b[10],
	}
	tagLen, n := binary.Uvarint(b[headerFixedLen:])
	if n <= 0 || uint64(len(b)-headerFixedLen-n) < tagLen {
		return header{}, errBadHeader
	}
	start := headerFixedLen + n
	h.tag = string(b[start : start+int(tagLen)])
	return h, nil
}

// headerTimestamp is the eventlog.HeaderTimestampExtractor for this layout.
func headerTimestamp(b []byte) (int64, bool) {
	if len(b) < 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b[:8])), true
}
