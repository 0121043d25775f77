// SPDX-License-Identifier: MIT

//go:build windows

package store

import "golang.org/x/sys/windows"

// FreeBytes reports the bytes available to unprivileged writers on the
// volume holding path.
func FreeBytes(path string) (int64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var free uint64
	if err := windows.GetDiskFreeSpaceEx(p, &free, nil, nil); err != nil {
		return 0, err
	}
	return int64(free), nil
}
