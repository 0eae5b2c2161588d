package loaders

import (
	"context"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ALEYI17/InfraSight_avx/internal/probe"
	"github.com/ALEYI17/InfraSight_avx/pkg/logutil"
	"github.com/ALEYI17/InfraSight_avx/pkg/types"
)

// AvxTracerLoader owns the kernel side of the AVX-512 tracer: the loaded
// collection, the two tracepoint links and the ring buffer the forwarder
// writes into. Bookkeeping happens in the probe hooks it dispatches to.
type AvxTracerLoader struct {
	Objs  *ebpf.Collection
	Links []link.Link
	Rb    *ringbuf.Reader
	sched *probe.SchedulerHook
	fpu   *probe.FpuDeactivationHook
}

func NewAvxTracerLoader(bpfPath string, maps *probe.Maps) (*AvxTracerLoader, error) {

	logger := logutil.GetLogger()
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, errors.Wrap(err, "unable to remove memlock limit")
	}

	major, minor, patch, err := getHostKernelVersion(procVersionPath)
	if err != nil {
		return nil, err
	}
	hostVer := kernelVersionCode(major, minor, patch)
	if hostVer < minKernelVersion {
		return nil, errors.Errorf(
			"The host kernel version (v%s) is too old to run the AVX512 tracer. Minimum version is v%s.",
			kernelVersionStr(hostVer), kernelVersionStr(minKernelVersion))
	}

	spec, err := ebpf.LoadCollectionSpec(bpfPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load collection spec from %q", bpfPath)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create new Collection")
	}

	avxt := &AvxTracerLoader{
		Objs:  coll,
		sched: probe.NewSchedulerHook(maps),
		fpu:   probe.NewFpuDeactivationHook(maps, logger),
	}

	tracepoints := []struct {
		group string
		name  string
		prog  string
	}{
		{"sched", "sched_switch", "tracepoint__sched_switch"},
		{"x86_fpu", "x86_fpu_regs_deactivated", "tracepoint__x86_fpu_regs_deactivated"},
	}

	for _, tp := range tracepoints {
		prog := coll.Programs[tp.prog]
		if prog == nil {
			avxt.Close()
			return nil, errors.Errorf("program %q missing from %q", tp.prog, bpfPath)
		}
		tpLink, err := link.Tracepoint(tp.group, tp.name, prog, nil)
		if err != nil {
			avxt.Close()
			return nil, errors.Wrapf(err, "unable to attach tracepoint %s/%s", tp.group, tp.name)
		}
		avxt.Links = append(avxt.Links, tpLink)
		logger.Info("attached tracepoint", zap.String("group", tp.group), zap.String("name", tp.name))
	}

	rb, err := ringbuf.NewReader(coll.Maps["avx_events"])
	if err != nil {
		avxt.Close()
		return nil, errors.Wrap(err, "unable to open ring buffer")
	}
	avxt.Rb = rb

	return avxt, nil
}

func (l *AvxTracerLoader) Close() {
	for _, tpLink := range l.Links {
		if tpLink != nil {
			tpLink.Close()
		}
	}
	if l.Rb != nil {
		l.Rb.Close()
	}
	if l.Objs != nil {
		l.Objs.Close()
	}
}

// Run pumps forwarded records into the hooks until ctx is cancelled or the
// ring buffer is closed.
func (l *AvxTracerLoader) Run(ctx context.Context) error {

	logger := logutil.GetLogger()

	go func() {
		<-ctx.Done()
		logger.Info("Context cancelled, stopping loader...")
		l.Rb.Close()
	}()

	for {
		record, err := l.Rb.Read()
		if err != nil {
			if errors.Is(err, ringbuf.ErrClosed) {
				logger.Info("Ring buffer closed, exiting...")
				return nil
			}
			logger.Error("Reading error", zap.Error(err))
			continue
		}

		l.dispatch(record.RawSample, logger)
	}
}

func (l *AvxTracerLoader) dispatch(raw []byte, logger *zap.Logger) {
	hdr, ok := probe.ReadEventHeader(raw)
	if !ok {
		logger.Warn("Short record", zap.Int("len", len(raw)))
		return
	}

	switch hdr.Kind {
	case types.EVENT_SCHED_SWITCH:
		l.sched.HandleSwitch(hdr.CgroupID)
	case types.EVENT_FPU_DEACTIVATED:
		l.fpu.HandleDeactivation(hdr.CgroupID, raw[probe.EventHeaderSize:])
	default:
		logger.Warn("Unknown event kind", zap.Uint32("kind", hdr.Kind))
	}
}
