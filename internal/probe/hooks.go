package probe

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SchedulerHook handles sched_switch events. It counts context switches only
// for cgroups that already have recorded AVX-512 activity, so cgroups that
// never touch AVX-512 cost nothing here.
type SchedulerHook struct {
	maps *Maps
}

func NewSchedulerHook(maps *Maps) *SchedulerHook {
	return &SchedulerHook{maps: maps}
}

// HandleSwitch records one context switch for cgroupID if the cgroup is
// tracked. AllSwitches is never created before AvxSwitches.
func (h *SchedulerHook) HandleSwitch(cgroupID uint64) {
	if _, ok := h.maps.AvxSwitches.Lookup(cgroupID); !ok {
		return
	}
	h.maps.AllSwitches.Add(cgroupID, 1)
}

// FpuDeactivationHook handles x86_fpu_regs_deactivated events. The first
// accepted event for a cgroup arms SchedulerHook tracking for it; there is no
// way back to untracked.
type FpuDeactivationHook struct {
	maps   *Maps
	logger *zap.Logger
	nowNs  func() uint64
}

func NewFpuDeactivationHook(maps *Maps, logger *zap.Logger) *FpuDeactivationHook {
	return &FpuDeactivationHook{
		maps:   maps,
		logger: logger,
		nowNs:  NowNanoseconds,
	}
}

// HandleDeactivation inspects the forwarded FPU snapshot and attributes one
// AVX-512 usage episode to the cgroup and its last CPU. Duplicate hardware
// markers for the same cgroup are ignored. A snapshot that cannot be read
// leaves every store untouched.
func (h *FpuDeactivationHook) HandleDeactivation(cgroupID uint64, rawState []byte) {
	st, ok := readFpuState(rawState)
	if !ok {
		return
	}
	if st.AvxTimestamp == 0 {
		return
	}

	// Absent reads as zero, which a real marker can never equal here.
	prev, _ := h.maps.LastAvxTs.Lookup(cgroupID)
	if uint32(prev) == st.AvxTimestamp {
		return
	}
	// Check-then-act: two cores racing with the same marker can both pass the
	// comparison and double-count one episode. Over-counts only, never
	// under-counts.
	h.maps.LastAvxTs.Put(cgroupID, uint64(st.AvxTimestamp))

	h.maps.CPUAvx.Add(uint64(st.LastCPU), 1)
	h.maps.AvxSwitches.Add(cgroupID, 1)
	h.maps.LastUpdateNs.Put(cgroupID, h.nowNs())

	h.logger.Debug("AVX512 detected", zap.Uint64("cgroup_id", cgroupID))
}

// NowNanoseconds returns a time that can be compared to bpf_ktime_get_ns().
func NowNanoseconds() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Nano())
}
