package probe

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fpuSnapshot(marker, lastCPU uint32) []byte {
	raw := make([]byte, fpuStateSize)
	binary.LittleEndian.PutUint32(raw[0:4], marker)
	binary.LittleEndian.PutUint32(raw[4:8], lastCPU)
	return raw
}

func newTestHooks(t *testing.T) (*Maps, *SchedulerHook, *FpuDeactivationHook) {
	t.Helper()
	maps := NewMaps()
	return maps, NewSchedulerHook(maps), NewFpuDeactivationHook(maps, zap.NewNop())
}

func TestSwitchesIgnoredWithoutAvxActivity(t *testing.T) {
	maps, sched, _ := newTestHooks(t)

	const cgroup = 1111
	for i := 0; i < 100; i++ {
		sched.HandleSwitch(cgroup)
	}

	_, ok := maps.AllSwitches.Lookup(cgroup)
	assert.False(t, ok)
	_, ok = maps.AvxSwitches.Lookup(cgroup)
	assert.False(t, ok)
}

func TestFirstAvxEventArmsTracking(t *testing.T) {
	maps, sched, fpu := newTestHooks(t)

	const cgroup = 2222
	fpu.HandleDeactivation(cgroup, fpuSnapshot(5, 2))

	v, ok := maps.AvxSwitches.Lookup(cgroup)
	require.True(t, ok)
	assert.Equal(t, uint64(1), v)

	v, ok = maps.CPUAvx.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, uint64(1), v)

	v, ok = maps.LastAvxTs.Lookup(cgroup)
	require.True(t, ok)
	assert.Equal(t, uint64(5), v)

	_, ok = maps.LastUpdateNs.Lookup(cgroup)
	assert.True(t, ok)

	// From now on switches for this cgroup are counted.
	sched.HandleSwitch(cgroup)
	sched.HandleSwitch(cgroup)
	v, ok = maps.AllSwitches.Lookup(cgroup)
	require.True(t, ok)
	assert.Equal(t, uint64(2), v)
}

func TestDuplicateMarkerIgnored(t *testing.T) {
	maps, _, fpu := newTestHooks(t)

	const cgroup = 3333
	fpu.HandleDeactivation(cgroup, fpuSnapshot(5, 2))
	fpu.HandleDeactivation(cgroup, fpuSnapshot(5, 2))

	v, ok := maps.AvxSwitches.Lookup(cgroup)
	require.True(t, ok)
	assert.Equal(t, uint64(1), v)

	v, _ = maps.CPUAvx.Lookup(2)
	assert.Equal(t, uint64(1), v)
}

func TestNewMarkerCountsNewEpisode(t *testing.T) {
	maps, _, fpu := newTestHooks(t)

	const cgroup = 4444
	fpu.HandleDeactivation(cgroup, fpuSnapshot(5, 2))
	fpu.HandleDeactivation(cgroup, fpuSnapshot(9, 2))

	v, ok := maps.AvxSwitches.Lookup(cgroup)
	require.True(t, ok)
	assert.Equal(t, uint64(2), v)

	v, _ = maps.LastAvxTs.Lookup(cgroup)
	assert.Equal(t, uint64(9), v)
}

func TestZeroMarkerMeansNoActivity(t *testing.T) {
	maps, _, fpu := newTestHooks(t)

	const cgroup = 5555
	fpu.HandleDeactivation(cgroup, fpuSnapshot(0, 2))

	_, ok := maps.AvxSwitches.Lookup(cgroup)
	assert.False(t, ok)
	_, ok = maps.CPUAvx.Lookup(2)
	assert.False(t, ok)
	_, ok = maps.LastAvxTs.Lookup(cgroup)
	assert.False(t, ok)
}

func TestTruncatedSnapshotTouchesNothing(t *testing.T) {
	maps, _, fpu := newTestHooks(t)

	const cgroup = 6666
	fpu.HandleDeactivation(cgroup, []byte{1, 2, 3})
	fpu.HandleDeactivation(cgroup, nil)

	_, ok := maps.AvxSwitches.Lookup(cgroup)
	assert.False(t, ok)
	_, ok = maps.LastAvxTs.Lookup(cgroup)
	assert.False(t, ok)
	_, ok = maps.LastUpdateNs.Lookup(cgroup)
	assert.False(t, ok)
}

func TestFreshnessNonDecreasing(t *testing.T) {
	maps, _, fpu := newTestHooks(t)

	clock := uint64(1000)
	fpu.nowNs = func() uint64 {
		clock += 10
		return clock
	}

	const cgroup = 7777
	var last uint64
	for marker := uint32(1); marker <= 5; marker++ {
		fpu.HandleDeactivation(cgroup, fpuSnapshot(marker, 0))
		v, ok := maps.LastUpdateNs.Lookup(cgroup)
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, last)
		last = v
	}
}

func TestReadEventHeader(t *testing.T) {
	raw := make([]byte, EventHeaderSize+fpuStateSize)
	binary.LittleEndian.PutUint32(raw[0:4], 2)
	binary.LittleEndian.PutUint64(raw[8:16], 987654321)
	binary.LittleEndian.PutUint32(raw[16:20], 5)
	binary.LittleEndian.PutUint32(raw[20:24], 3)

	hdr, ok := ReadEventHeader(raw)
	require.True(t, ok)
	assert.Equal(t, uint32(2), hdr.Kind)
	assert.Equal(t, uint64(987654321), hdr.CgroupID)

	st, ok := readFpuState(raw[EventHeaderSize:])
	require.True(t, ok)
	assert.Equal(t, uint32(5), st.AvxTimestamp)
	assert.Equal(t, uint32(3), st.LastCPU)

	_, ok = ReadEventHeader(raw[:8])
	assert.False(t, ok)
}
