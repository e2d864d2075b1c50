package eventlog

import (
	"encoding/binary"
)

var (
	logPrefix  = []byte("log/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the metadata key of a named log.
func KeyMeta(name string) []byte {
	k := make([]byte, 0, len(logPrefix)+len(name)+len(metaSuffix))
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntryPrefix is the common prefix of every entry key of a named log.
func KeyEntryPrefix(name string) []byte {
	k := make([]byte, 0, len(logPrefix)+len(name)+len(entrySeg)+8)
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, entrySeg...)
	return k
}

// KeyEntry builds an entry key. The big-endian sequence keeps keys in seq order.
func KeyEntry(name string, seq uint64) []byte {
	return appendBE8(KeyEntryPrefix(name), seq)
}

// seqFromKey extracts the trailing sequence from an entry key.
func seqFromKey(k []byte) uint64 {
	if len(k) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
