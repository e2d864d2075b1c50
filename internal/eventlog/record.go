package eventlog

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// ErrCorrupt is returned for entries whose framing or checksum is invalid.
var ErrCorrupt = errors.New("eventlog: corrupt record")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func checksum(header, payload []byte) uint32 {
	crc := crc32.Update(0, castagnoli, header)
	return crc32.Update(crc, castagnoli, payload)
}

// EncodeRecord frames header and payload with a length prefix and trailing crc32c.
func EncodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)
	return binary.BigEndian.AppendUint32(out, checksum(header, payload))
}

// DecodeRecord reverses EncodeRecord. The returned slices are copies.
func DecodeRecord(b []byte) (header, payload []byte, err error) {
	if len(b) < 1+4 {
		return nil, nil, ErrCorrupt
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n-4) < hlen {
		return nil, nil, ErrCorrupt
	}
	h := b[n : n+int(hlen)]
	p := b[n+int(hlen) : len(b)-4]
	if checksum(h, p) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, nil, ErrCorrupt
	}
	return append([]byte(nil), h...), append([]byte(nil), p...), nil
}
