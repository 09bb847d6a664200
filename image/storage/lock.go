package storage

import (
	"errors"
	"os"

	"github.com/autowp/goimagestorage/util"
	"golang.org/x/sys/unix"
)

var errLocked = errors.New("file is locked")

// lockFile opens or creates path and takes an exclusive advisory lock without blocking.
// errLocked means another writer owns the file.
func lockFile(path string, mode os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, mode)
	if err != nil {
		return nil, err
	}

	err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB) //nolint: gosec
	if err != nil {
		util.Close(file)

		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errLocked
		}

		return nil, err
	}

	return file, nil
}

func unlockFile(file *os.File) error {
	err := unix.Flock(int(file.Fd()), unix.LOCK_UN) //nolint: gosec
	closeErr := file.Close()

	if err != nil {
		return err
	}

	return closeErr
}
