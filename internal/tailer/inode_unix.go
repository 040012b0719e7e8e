//go:build unix

package tailer

import (
	"os"
	"syscall"
)

// inodeDev returns the inode and device id backing a file, used to detect
// rotation (same path, new file).
func inodeDev(fi os.FileInfo) (uint64, uint64) {
	if fi == nil {
		return 0, 0
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Ino), uint64(st.Dev)
	}
	return 0, 0
}
