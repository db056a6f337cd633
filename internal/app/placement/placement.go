package placement

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/John-Robertt/PixSort/internal/domain"
	"github.com/John-Robertt/PixSort/internal/infra/fsx"
)

const (
	// CollisionOverwrite：同名文件静默覆盖（与参考工具行为一致，默认值）。
	CollisionOverwrite = "overwrite"
	// CollisionRename：同名时追加 __N 后缀（name__2.jpg、name__3.jpg ...）。
	CollisionRename = "rename"
)

// Engine 把 Category 映射为输出根目录下的子目录，并给出目标文件路径。
//
// 约束：
// - 目录创建是幂等的：多个 worker 并发创建同一目录不会失败
// - rename 模式下，同一次 run 内分配出去的目标路径不会被重复分配
type Engine struct {
	root      string
	collision string

	mu      sync.Mutex
	created map[string]struct{}
	claimed map[string]struct{}
}

func New(root, collision string) (*Engine, error) {
	switch collision {
	case CollisionOverwrite, CollisionRename:
	case "":
		collision = CollisionOverwrite
	default:
		return nil, fmt.Errorf("未知的同名冲突策略 %q（只能是 overwrite 或 rename）", collision)
	}
	return &Engine{
		root:      filepath.Clean(root),
		collision: collision,
		created:   make(map[string]struct{}, 16),
		claimed:   make(map[string]struct{}, 128),
	}, nil
}

// FolderFor 返回类别对应的目录名：档位/Videos/Unsorted 原样；Error 与未知类别落到 Unclassified。
func FolderFor(c domain.Category) string {
	switch c {
	case domain.CatError, "":
		return string(domain.CatUnclassified)
	}
	if !c.Valid() {
		return string(domain.CatUnclassified)
	}
	return string(c)
}

// Folder 返回类别对应目录的绝对路径（不创建）。
func (e *Engine) Folder(c domain.Category) string {
	return filepath.Join(e.root, FolderFor(c))
}

// Prepare 确保目标目录存在，并返回 (目标目录, 目标文件路径)。
// 目标文件名 = 源文件名；同名冲突按 Engine 的策略处理。
func (e *Engine) Prepare(c domain.Category, srcAbs string) (folder, dst string, err error) {
	folder = e.Folder(c)
	if err := e.ensureDir(folder); err != nil {
		return "", "", err
	}

	name := filepath.Base(srcAbs) // 保留原文件名（含扩展名大小写）
	if e.collision == CollisionOverwrite {
		return folder, filepath.Join(folder, name), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	dst = filepath.Join(folder, allocName(folder, name, e.taken))
	e.claimed[dst] = struct{}{}
	return folder, dst, nil
}

func (e *Engine) ensureDir(dir string) error {
	e.mu.Lock()
	_, ok := e.created[dir]
	e.mu.Unlock()
	if ok {
		return nil
	}

	if err := fsx.EnsureDir(dir); err != nil {
		return err
	}

	e.mu.Lock()
	e.created[dir] = struct{}{}
	e.mu.Unlock()
	return nil
}

// taken 判断候选路径是否已被占用：本次 run 已分配，或磁盘上已存在。调用方需持有 e.mu。
func (e *Engine) taken(p string) bool {
	if _, ok := e.claimed[p]; ok {
		return true
	}
	_, err := os.Lstat(p)
	return err == nil
}

func allocName(folder, name string, taken func(string) bool) string {
	if !taken(filepath.Join(folder, name)) {
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 2; ; n++ {
		cand := fmt.Sprintf("%s__%d%s", base, n, ext)
		if !taken(filepath.Join(folder, cand)) {
			return cand
		}
	}
}
