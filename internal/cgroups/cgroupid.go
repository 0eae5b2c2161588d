package cgroups

import (
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DefaultV2path is the usual mount point for the cgroup v2 pseudofilesystem.
const DefaultV2path = "/sys/fs/cgroup"

// CgroupID resolves kernel cgroup ids to paths under the v2 mountpoint. On
// cgroup2 the id of a group is the inode number of its directory. Resolved
// ids are cached; ids are stable for the cgroup's lifetime.
type CgroupID struct {
	root  string
	cache map[uint64]string
	sync.Mutex
}

func NewCgroupID(root string) *CgroupID {
	return &CgroupID{
		root:  root,
		cache: make(map[uint64]string),
	}
}

// Find returns the path of the cgroup with the given id.
func (cgid *CgroupID) Find(id uint64) (string, error) {
	cgid.Lock()
	defer cgid.Unlock()

	if path, ok := cgid.cache[id]; ok {
		return path, nil
	}

	found := ""
	err := filepath.WalkDir(cgid.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// cgroups can vanish mid-walk
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		var stat unix.Stat_t
		if err := unix.Stat(path, &stat); err != nil {
			return nil
		}
		if stat.Ino == id {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "unable to walk cgroupfs")
	}
	if found == "" {
		return "", errors.Errorf("cgroupid %v not found", id)
	}

	cgid.cache[id] = found
	return found, nil
}
