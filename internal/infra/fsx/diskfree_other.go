//go:build !linux && !darwin && !freebsd && !dragonfly && !windows

package fsx

import "errors"

var errFreeBytesUnsupported = errors.New("当前平台不支持查询剩余空间")

// FreeBytes 在不支持的平台上总是失败（上层按 0 字节处理）。
func FreeBytes(path string) (uint64, error) {
	return 0, errFreeBytesUnsupported
}
