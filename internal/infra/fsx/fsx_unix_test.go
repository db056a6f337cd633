//go:build unix

package fsx

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestRename_CrossDeviceEXDEV(t *testing.T) {
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	defer func() { renameFunc = old }()

	err := Rename("/a", "/b")
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if !IsCrossDevice(err) {
		t.Fatalf("期望 CrossDeviceError，实际：%T %v", err, err)
	}
}

func TestMove_CrossDeviceFallsBackToCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "HD", "a.jpg")
	if err := os.WriteFile(src, []byte("img"), 0o644); err != nil {
		t.Fatalf("写入源文件失败：%v", err)
	}
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	// 只有“源 -> 目标”的直接 rename 模拟跨盘；临时文件的 rename 正常执行。
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		if oldpath == src {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return os.Rename(oldpath, newpath)
	}
	defer func() { renameFunc = old }()

	if err := Move(context.Background(), src, dst); err != nil {
		t.Fatalf("Move 失败：%v", err)
	}
	if b, err := os.ReadFile(dst); err != nil || string(b) != "img" {
		t.Fatalf("目标内容不一致：%q err=%v", string(b), err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("跨盘移动后应删除源文件，Stat err=%v", err)
	}
}
