package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFiles_RecursiveFilesOnly(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "deep", "x", "b.PNG"))
	touch(t, filepath.Join(root, "deep", "notes.txt"))
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	got, skipped, err := Files(root, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("不期望 skipped：%v", skipped)
	}
	if len(got) != 3 {
		t.Fatalf("期望 3 个文件，实际 %d：%+v", len(got), got)
	}
	for _, f := range got {
		if !filepath.IsAbs(f.AbsPath) {
			t.Fatalf("AbsPath 必须是绝对路径：%q", f.AbsPath)
		}
		if f.Size != 1 {
			t.Fatalf("Size 应来自 stat：%+v", f)
		}
	}
	if got[1].RelPath != filepath.Join("deep", "notes.txt") || got[2].Ext != ".png" {
		t.Fatalf("排序或扩展名不符合预期：%+v", got)
	}
}

func TestFiles_ExcludeOutputInsideInput(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "Sorted_images")

	touch(t, filepath.Join(out, "HD", "old.jpg"))
	touch(t, filepath.Join(root, "in", "new.jpg"))
	touch(t, filepath.Join(root, "temp", "skip.jpg"))

	got, _, err := Files(root, []string{out, "temp"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 个文件，实际 %d：%+v", len(got), got)
	}
	if want := filepath.Join("in", "new.jpg"); got[0].RelPath != want {
		t.Fatalf("期望 rel=%q，实际=%q", want, got[0].RelPath)
	}
}

func TestFiles_ExcludePrefixIsNotSubstring(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "out2", "a.jpg"))

	got, _, err := Files(root, []string{"out"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("out 不应排除 out2：%+v", got)
	}
}

func TestFiles_MissingRoot(t *testing.T) {
	if _, _, err := Files(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Fatalf("root 不存在时期望错误")
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
