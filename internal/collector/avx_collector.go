package collector

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ALEYI17/InfraSight_avx/internal/probe"
	"github.com/ALEYI17/InfraSight_avx/pkg/logutil"
)

const (
	// LastCPUName is the Prometheus Gauge name for last CPU with AVX512 instructions.
	LastCPUName = "last_cpu_avx_task_switches"
	// AVXSwitchCountName is the Prometheus Gauge name for AVX switch count per cgroup.
	AVXSwitchCountName = "avx_switch_count_per_cgroup"
	// AllSwitchCountName is the Prometheus Gauge name for all switch count per cgroup.
	AllSwitchCountName = "all_switch_count_per_cgroup"
	// LastUpdateNsName is the Prometheus Gauge name for per cgroup AVX512 activity timestamp.
	LastUpdateNsName = "last_update_ns"
)

// Metric descriptor indices and descriptor table
const (
	lastCPUDesc = iota
	avxSwitchCountDesc
	allSwitchCountDesc
	lastUpdateNsDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	lastCPUDesc: prometheus.NewDesc(
		LastCPUName,
		"Number of task switches on the CPU where AVX512 instructions were used.",
		[]string{
			"cpu_id",
		}, nil,
	),
	avxSwitchCountDesc: prometheus.NewDesc(
		AVXSwitchCountName,
		"Number of task switches where AVX512 instructions were used in a particular cgroup.",
		[]string{
			"cgroup",
			"cgroup_id",
		}, nil,
	),
	allSwitchCountDesc: prometheus.NewDesc(
		AllSwitchCountName,
		"Total number of task switches in a particular cgroup.",
		[]string{
			"cgroup",
		}, nil,
	),
	lastUpdateNsDesc: prometheus.NewDesc(
		LastUpdateNsName,
		"Time since last AVX512 activity in a particular cgroup.",
		[]string{
			"cgroup",
		}, nil,
	),
}

// PathResolver turns kernel cgroup ids into cgroupfs paths for metric labels.
type PathResolver interface {
	Find(id uint64) (string, error)
}

// AvxCollector exposes the probe stores as Prometheus gauges. Collection is a
// plain read-only enumeration; the stores are never reset, so the gauges carry
// the raw monotonic counters.
type AvxCollector struct {
	maps     *probe.Maps
	resolver PathResolver
	nowNs    func() uint64
}

func NewAvxCollector(maps *probe.Maps, resolver PathResolver) *AvxCollector {
	return &AvxCollector{
		maps:     maps,
		resolver: resolver,
		nowNs:    probe.NowNanoseconds,
	}
}

// Describe implements prometheus.Collector interface
func (c *AvxCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector interface
func (c *AvxCollector) Collect(ch chan<- prometheus.Metric) {
	logger := logutil.GetLogger()
	now := c.nowNs()

	c.maps.CPUAvx.Range(func(cpu, counter uint64) bool {
		ch <- prometheus.MustNewConstMetric(
			descriptors[lastCPUDesc],
			prometheus.GaugeValue,
			float64(uint32(counter)),
			fmt.Sprintf("CPU%d", cpu))
		return true
	})

	c.maps.AvxSwitches.Range(func(cgroupid, counter uint64) bool {
		path, err := c.resolver.Find(cgroupid)
		if err != nil {
			logger.Debug("failed to find cgroup by id", zap.Uint64("cgroup_id", cgroupid), zap.Error(err))
			path = fmt.Sprintf("%d", cgroupid)
		}

		ch <- prometheus.MustNewConstMetric(
			descriptors[avxSwitchCountDesc],
			prometheus.GaugeValue,
			float64(uint32(counter)),
			path,
			fmt.Sprintf("%d", cgroupid))

		if allCount, ok := c.maps.AllSwitches.Lookup(cgroupid); ok {
			ch <- prometheus.MustNewConstMetric(
				descriptors[allSwitchCountDesc],
				prometheus.GaugeValue,
				float64(uint32(allCount)),
				path)
		}

		if lastUpdate, ok := c.maps.LastUpdateNs.Lookup(cgroupid); ok {
			ch <- prometheus.MustNewConstMetric(
				descriptors[lastUpdateNsDesc],
				prometheus.GaugeValue,
				float64(now-lastUpdate),
				path)
		}
		return true
	})
}
