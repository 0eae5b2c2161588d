package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ALEYI17/InfraSight_avx/internal/cgroups"
	"github.com/ALEYI17/InfraSight_avx/internal/probe"
	"github.com/ALEYI17/InfraSight_avx/pkg/types"
)

// AgentConfig collects everything the agent needs at startup. Values come
// from defaults, then an optional YAML file (AVX_AGENT_CONFIG), then
// individual environment overrides.
type AgentConfig struct {
	MetricsAddress   string        `yaml:"metrics_address"`
	BpfObjectPath    string        `yaml:"bpf_object_path"`
	CgroupV2Path     string        `yaml:"cgroupv2_path"`
	CgroupCapacity   int           `yaml:"cgroup_capacity"`
	CPUCapacity      int           `yaml:"cpu_capacity"`
	LivenessInterval time.Duration `yaml:"liveness_interval"`
	Nodename         string        `yaml:"nodename"`
	EnableProbes     []string      `yaml:"enable_probes"`
}

func DefaultConfig() *AgentConfig {
	hostname, _ := os.Hostname()
	return &AgentConfig{
		MetricsAddress:   ":8090",
		BpfObjectPath:    "/usr/libexec/bpf/avx512.bpf.o",
		CgroupV2Path:     cgroups.DefaultV2path,
		CgroupCapacity:   probe.DefaultCgroupCapacity,
		CPUCapacity:      probe.DefaultCPUCapacity,
		LivenessInterval: 60 * time.Second,
		Nodename:         hostname,
		EnableProbes:     []string{types.LoaderAvx512},
	}
}

// LoadConfig builds the config from defaults, the YAML file at path (falling
// back to AVX_AGENT_CONFIG when path is empty), then environment overrides.
func LoadConfig(path string) (*AgentConfig, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("AVX_AGENT_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "unable to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "unable to parse config file %q", path)
		}
	}

	if v, ok := os.LookupEnv("AVX_AGENT_METRICS_ADDRESS"); ok {
		cfg.MetricsAddress = v
	}
	if v, ok := os.LookupEnv("AVX_AGENT_BPF_PATH"); ok {
		cfg.BpfObjectPath = v
	}
	if v, ok := os.LookupEnv("AVX_AGENT_CGROUPV2_PATH"); ok {
		cfg.CgroupV2Path = v
	}
	if v, ok := os.LookupEnv("AVX_AGENT_NODE_NAME"); ok {
		cfg.Nodename = v
	}
	if v, ok := os.LookupEnv("AVX_AGENT_PROBES"); ok {
		cfg.EnableProbes = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("AVX_AGENT_LIVENESS_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrap(err, "invalid AVX_AGENT_LIVENESS_INTERVAL")
		}
		cfg.LivenessInterval = d
	}
	if v, ok := os.LookupEnv("AVX_AGENT_CGROUP_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.Errorf("invalid AVX_AGENT_CGROUP_CAPACITY %q", v)
		}
		cfg.CgroupCapacity = n
	}
	if v, ok := os.LookupEnv("AVX_AGENT_CPU_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.Errorf("invalid AVX_AGENT_CPU_CAPACITY %q", v)
		}
		cfg.CPUCapacity = n
	}

	return cfg, nil
}
