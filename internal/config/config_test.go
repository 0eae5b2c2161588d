package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEYI17/InfraSight_avx/pkg/types"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.MetricsAddress)
	assert.Equal(t, "/usr/libexec/bpf/avx512.bpf.o", cfg.BpfObjectPath)
	assert.Equal(t, 1024, cfg.CgroupCapacity)
	assert.Equal(t, 128, cfg.CPUCapacity)
	assert.Equal(t, []string{types.LoaderAvx512}, cfg.EnableProbes)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AVX_AGENT_METRICS_ADDRESS", ":9999")
	t.Setenv("AVX_AGENT_BPF_PATH", "/opt/bpf/avx512.bpf.o")
	t.Setenv("AVX_AGENT_LIVENESS_INTERVAL", "15s")
	t.Setenv("AVX_AGENT_CGROUP_CAPACITY", "2048")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.MetricsAddress)
	assert.Equal(t, "/opt/bpf/avx512.bpf.o", cfg.BpfObjectPath)
	assert.Equal(t, 15*time.Second, cfg.LivenessInterval)
	assert.Equal(t, 2048, cfg.CgroupCapacity)
}

func TestYamlFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"metrics_address: \":7070\"\ncgroupv2_path: /mnt/cgroup2\n"), 0o644))
	t.Setenv("AVX_AGENT_CONFIG", path)
	t.Setenv("AVX_AGENT_METRICS_ADDRESS", ":6060")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.MetricsAddress)
	assert.Equal(t, "/mnt/cgroup2", cfg.CgroupV2Path)
}

func TestExplicitPathBeatsEnvFile(t *testing.T) {
	dir := t.TempDir()
	flagPath := filepath.Join(dir, "flag.yaml")
	envPath := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(flagPath, []byte("metrics_address: \":7171\"\n"), 0o644))
	require.NoError(t, os.WriteFile(envPath, []byte("metrics_address: \":5050\"\n"), 0o644))
	t.Setenv("AVX_AGENT_CONFIG", envPath)

	cfg, err := LoadConfig(flagPath)
	require.NoError(t, err)

	assert.Equal(t, ":7171", cfg.MetricsAddress)
}

func TestInvalidValues(t *testing.T) {
	t.Setenv("AVX_AGENT_CPU_CAPACITY", "zero")

	_, err := LoadConfig("")
	assert.Error(t, err)
}
