//go:build !linux && !darwin

package healthmonitor

import (
	"github.com/peercoin/warnd/errors"
)

type StatfsDiskSpace struct{}

func (StatfsDiskSpace) FreeBytes(path string) (uint64, error) {
	return 0, errors.NewProcessingError("[StatfsDiskSpace] free space of %s cannot be read on this platform", path)
}
