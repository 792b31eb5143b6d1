//go:build linux || darwin

package healthmonitor

import (
	"github.com/peercoin/warnd/errors"
	"golang.org/x/sys/unix"
)

// StatfsDiskSpace reads free space with statfs(2).
type StatfsDiskSpace struct{}

func (StatfsDiskSpace) FreeBytes(path string) (uint64, error) {
	var st unix.Statfs_t

	if err := unix.Statfs(path, &st); err != nil {
		return 0, errors.NewProcessingError("[StatfsDiskSpace] statfs %s failed", path, err)
	}

	//nolint:gosec // G115: block size is never negative
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
