package loaders

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

const procVersionPath = "/proc/version"

// minKernelVersion is the oldest kernel exposing the x86_fpu tracepoints and
// the avx512_timestamp field the forwarder reads.
const minKernelVersion = 5<<16 | 2<<8

var versionRegex = regexp.MustCompile(`^Linux version (\d+)\.(\d+)\.(\d+)`)

func getHostKernelVersion(path string) (major, minor uint8, patch uint16, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "unable to read kernel version")
	}

	m := versionRegex.FindSubmatch(data)
	if m == nil {
		return 0, 0, 0, errors.Errorf("unable to parse kernel version from %q", path)
	}

	maj, err := strconv.ParseUint(string(m[1]), 10, 8)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "unable to convert kernel version")
	}
	min, err := strconv.ParseUint(string(m[2]), 10, 8)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "unable to convert kernel version")
	}
	// LTS patch levels run well past 255 (e.g. 5.4.290)
	pat, err := strconv.ParseUint(string(m[3]), 10, 16)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "unable to convert kernel version")
	}
	return uint8(maj), uint8(min), uint16(pat), nil
}

// The gate only cares about major.minor; the patch level is clamped so it
// cannot bleed into the minor bits.
func kernelVersionCode(major, minor uint8, patch uint16) uint32 {
	if patch > 0xff {
		patch = 0xff
	}
	return uint32(major)<<16 | uint32(minor)<<8 | uint32(patch)
}

func kernelVersionStr(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xff, v&0xff)
}
