package space

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/John-Robertt/PixSort/internal/infra/fsx"
)

// InsufficientError 表示目标卷剩余空间不足以容纳一次复制。
type InsufficientError struct {
	Path     string
	Need     int64
	Free     uint64
	Reserved uint64
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("目标卷空间不足：%q 需要 %d 字节，剩余 %d 字节（其中 %d 字节已被进行中的复制占用）",
		e.Path, e.Need, e.Free, e.Reserved)
}

// IsInsufficient 判断 err 是否为 InsufficientError。
func IsInsufficient(err error) bool {
	var e *InsufficientError
	return errors.As(err, &e)
}

// Guard 是复制前的准入检查（admission check）。
//
// 并发的复制会同时消耗同一个卷的剩余空间，因此 Guard 记录“已准入但尚未完成”的字节数，
// 新的准入要扣除这部分预留。只在 action=copy 时使用。
type Guard struct {
	// FreeFunc 查询剩余空间；nil 时使用 fsx.FreeBytes（测试可替换以模拟空间不足）。
	FreeFunc func(path string) (uint64, error)

	mu       sync.Mutex
	reserved uint64
	logger   *slog.Logger
}

// NewGuard 返回查询真实磁盘空间的 Guard；logger 为 nil 时丢弃日志。
func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Guard{logger: logger}
}

// FreeBytes 查询 root 所在卷的剩余空间；查询失败返回 0（按“没有空间”处理，保证下游检查失败在安全侧）。
func (g *Guard) FreeBytes(root string) uint64 {
	free := g.FreeFunc
	if free == nil {
		free = fsx.FreeBytes
	}
	n, err := free(root)
	if err != nil {
		g.log().Warn("查询剩余空间失败，按 0 字节处理", "path", root, "error", err)
		return 0
	}
	return n
}

// Admit 为一次 size 字节的复制做准入检查。
//
// 通过时返回 release，调用方必须在复制结束（无论成败）后调用一次；
// 不通过时返回 *InsufficientError。
func (g *Guard) Admit(root string, size int64) (release func(), err error) {
	if size < 0 {
		size = 0
	}
	need := uint64(size)

	g.mu.Lock()
	defer g.mu.Unlock()

	free := g.FreeBytes(root)
	avail := uint64(0)
	if free > g.reserved {
		avail = free - g.reserved
	}
	if avail < need {
		return nil, &InsufficientError{Path: root, Need: size, Free: free, Reserved: g.reserved}
	}

	g.reserved += need
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.reserved -= need
			g.mu.Unlock()
		})
	}, nil
}

// Reserved 返回当前仍被预留的字节数（用于测试/诊断）。
func (g *Guard) Reserved() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reserved
}

func (g *Guard) log() *slog.Logger {
	if g.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return g.logger
}
