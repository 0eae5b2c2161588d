package probe

// Store capacities match the max_entries of the kernel-side hash maps this
// bookkeeping replaced. Past these bounds new cgroups/CPUs stop being picked
// up; existing ones keep counting.
const (
	DefaultCgroupCapacity = 1024
	DefaultCPUCapacity    = 128
)

// Maps owns the five counter stores shared by both hooks and enumerated by
// the metrics collector.
//
//	AllSwitches  cgroup id -> context switch count, only for cgroups with
//	             observed AVX activity
//	AvxSwitches  cgroup id -> distinct AVX-512 usage episodes
//	LastAvxTs    cgroup id -> last hardware usage marker, for dedup
//	LastUpdateNs cgroup id -> monotonic ns of last accepted AVX event
//	CPUAvx       cpu id    -> AVX-512 episodes attributed to the CPU
type Maps struct {
	AllSwitches  *Store
	AvxSwitches  *Store
	LastAvxTs    *Store
	LastUpdateNs *Store
	CPUAvx       *Store
}

// NewMaps pre-creates all five stores with the default capacities.
func NewMaps() *Maps {
	return NewMapsWithCapacity(DefaultCgroupCapacity, DefaultCPUCapacity)
}

// NewMapsWithCapacity pre-creates the stores with explicit bounds.
func NewMapsWithCapacity(cgroupCapacity, cpuCapacity int) *Maps {
	return &Maps{
		AllSwitches:  NewStore(cgroupCapacity),
		AvxSwitches:  NewStore(cgroupCapacity),
		LastAvxTs:    NewStore(cgroupCapacity),
		LastUpdateNs: NewStore(cgroupCapacity),
		CPUAvx:       NewStore(cpuCapacity),
	}
}
