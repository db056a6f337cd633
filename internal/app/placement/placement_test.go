package placement

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/John-Robertt/PixSort/internal/domain"
)

func TestFolderFor_Mapping(t *testing.T) {
	cases := map[domain.Category]string{
		domain.CatFullHD:       "Full HD",
		domain.CatExtraLarge:   "Extra Large",
		domain.CatVideos:       "Videos",
		domain.CatUnsorted:     "Unsorted",
		domain.CatError:        "Unclassified",
		domain.CatUnclassified: "Unclassified",
		domain.Category("??"):  "Unclassified",
	}
	for c, want := range cases {
		if got := FolderFor(c); got != want {
			t.Fatalf("%q 期望目录 %q，实际 %q", c, want, got)
		}
	}
}

func TestPrepare_OverwriteKeepsBaseName(t *testing.T) {
	root := t.TempDir()
	e := mustNew(t, root, CollisionOverwrite)

	folder, dst, err := e.Prepare(domain.CatHD, filepath.Join("/in", "x", "a.JPG"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if folder != filepath.Join(root, "HD") || dst != filepath.Join(root, "HD", "a.JPG") {
		t.Fatalf("路径不符合预期：folder=%q dst=%q", folder, dst)
	}
	if fi, err := os.Stat(folder); err != nil || !fi.IsDir() {
		t.Fatalf("期望创建目标目录：%v", err)
	}

	// 同名文件再次分配：overwrite 模式下得到同一路径。
	writeFile(t, dst)
	_, dst2, err := e.Prepare(domain.CatHD, filepath.Join("/in", "y", "a.JPG"))
	if err != nil || dst2 != dst {
		t.Fatalf("overwrite 模式应返回同一路径：%q err=%v", dst2, err)
	}
}

func TestPrepare_RenameAvoidsDiskAndClaims(t *testing.T) {
	root := t.TempDir()
	e := mustNew(t, root, CollisionRename)

	writeFile(t, filepath.Join(root, "SD", "a.png"))

	_, d1, err := e.Prepare(domain.CatSD, "/in/1/a.png")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	_, d2, err := e.Prepare(domain.CatSD, "/in/2/a.png")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if filepath.Base(d1) != "a__2.png" || filepath.Base(d2) != "a__3.png" {
		t.Fatalf("rename 分配不符合预期：%q %q", d1, d2)
	}
}

func TestPrepare_RenameConcurrentUnique(t *testing.T) {
	root := t.TempDir()
	e := mustNew(t, root, CollisionRename)

	const n = 32
	var mu sync.Mutex
	seen := make(map[string]struct{}, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dst, err := e.Prepare(domain.CatLow, "/in/same.gif")
			if err != nil {
				t.Errorf("不期望错误：%v", err)
				return
			}
			mu.Lock()
			seen[dst] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("并发分配应得到 %d 个不同路径，实际 %d", n, len(seen))
	}
}

func TestPrepare_FolderIsFileConflict(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Videos"))

	e := mustNew(t, root, CollisionOverwrite)
	if _, _, err := e.Prepare(domain.CatVideos, "/in/a.mp4"); err == nil {
		t.Fatalf("目标目录是文件时应报错")
	}
}

func TestNew_InvalidCollision(t *testing.T) {
	if _, err := New(t.TempDir(), "skip"); err == nil {
		t.Fatalf("未知策略应报错")
	}
}

func mustNew(t *testing.T, root, collision string) *Engine {
	t.Helper()
	e, err := New(root, collision)
	if err != nil {
		t.Fatalf("New 失败：%v", err)
	}
	return e
}

func writeFile(t *testing.T, p string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
}
