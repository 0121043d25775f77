// SPDX-License-Identifier: MIT

//go:build !windows

package store

import "syscall"

// FreeBytes reports the bytes available to unprivileged writers on the
// filesystem holding path.
func FreeBytes(path string) (int64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
