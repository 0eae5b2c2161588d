package types

const (
	LoaderAvx512 = "avx512"

	EVENT_SCHED_SWITCH    = 1
	EVENT_FPU_DEACTIVATED = 2
)
