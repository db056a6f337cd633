//go:build windows

package fsx

import "golang.org/x/sys/windows"

// FreeBytes 返回 path 所在卷对当前用户可用的剩余字节数。
func FreeBytes(path string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var avail, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &total, &free); err != nil {
		return 0, err
	}
	return avail, nil
}
