//go:build linux || darwin || freebsd || dragonfly

package fsx

import "golang.org/x/sys/unix"

// FreeBytes 返回 path 所在卷对当前用户可用的剩余字节数。
func FreeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
