package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/PixSort/internal/domain"
)

// Skipped 描述扫描过程中无法进入/读取的路径（不会中断扫描）。
type Skipped struct {
	Path string
	Err  error
}

// Files 递归扫描 root 下的全部文件（只收集文件，不收集目录），并应用目录排除规则。
//
// 规则：
// - excludeDirs 为相对 root 的路径（若是绝对路径，则按绝对路径处理），命中即整棵子树跳过
// - root 本身不可读：返回 error；子目录不可读：记入 skipped 并继续
// - 只收集普通文件与符号链接；设备/管道/套接字等特殊文件忽略
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func Files(root string, excludeDirs []string) ([]domain.FileTask, []Skipped, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	files := make([]domain.FileTask, 0, 128)
	var skipped []Skipped
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			skipped = append(skipped, Skipped{Path: path, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if path != root && isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if t := d.Type(); !t.IsRegular() && t&fs.ModeSymlink == 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			skipped = append(skipped, Skipped{Path: path, Err: err})
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, domain.FileTask{
			AbsPath: path,
			RelPath: rel,
			Ext:     strings.ToLower(filepath.Ext(d.Name())),
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// 输出顺序对结果没有语义，但稳定顺序便于测试与复现。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, skipped, nil
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, strings.TrimSuffix(base, sep)+sep)
}
