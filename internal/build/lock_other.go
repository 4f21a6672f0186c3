//go:build !unix

package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// lockStaging creates path exclusively and removes it on unlock. A lock
// file left behind by a killed process must be removed by hand.
func lockStaging(path string) (unlock func(), err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrStagingBusy, path)
		}
		return nil, err
	}
	return func() {
		f.Close()
		os.Remove(path)
	}, nil
}
