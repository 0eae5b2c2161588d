package probe

import (
	"encoding/binary"
)

// EventHeader mirrors the leading fields of struct avx_event emitted by the
// kernel forwarder in bpf/avx512.bpf.c.
type EventHeader struct {
	Kind     uint32
	_        uint32
	CgroupID uint64
}

// EventHeaderSize is the offset where the FPU snapshot begins in a forwarded
// record.
const EventHeaderSize = 16

// ReadEventHeader decodes the common record header. Records shorter than the
// header are malformed and rejected.
func ReadEventHeader(raw []byte) (EventHeader, bool) {
	if len(raw) < EventHeaderSize {
		return EventHeader{}, false
	}
	return EventHeader{
		Kind:     binary.LittleEndian.Uint32(raw[0:4]),
		CgroupID: binary.LittleEndian.Uint64(raw[8:16]),
	}, true
}

// fpuState is the userspace copy of the two fields the forwarder probe-reads
// out of the kernel's per-thread FPU area.
type fpuState struct {
	AvxTimestamp uint32
	LastCPU      uint32
}

const fpuStateSize = 8

// readFpuState performs the bounded copy of a forwarded FPU snapshot. A
// truncated record means the kernel-side probe read failed; the caller must
// treat that as "touch nothing".
func readFpuState(raw []byte) (fpuState, bool) {
	if len(raw) < fpuStateSize {
		return fpuState{}, false
	}
	return fpuState{
		AvxTimestamp: binary.LittleEndian.Uint32(raw[0:4]),
		LastCPU:      binary.LittleEndian.Uint32(raw[4:8]),
	}, true
}
