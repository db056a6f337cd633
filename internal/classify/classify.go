// Package classify 把一个文件映射为唯一的 domain.Category。
//
// 分类只读取廉价元数据（图片头、文件大小、扩展名），从不解码像素。
package classify

import (
	"errors"
	"fmt"
	"os"

	"github.com/John-Robertt/PixSort/internal/domain"
	"github.com/John-Robertt/PixSort/internal/infra/imgx"
)

// Kind 是分类结果的标签：OK | Warning | Error。
type Kind int

const (
	KindOK Kind = iota
	// KindWarning：安全检查触发（例如解压炸弹），归入 Unsorted，不算失败。
	KindWarning
	// KindError：元数据读取失败，归入 Error（落盘到 Unclassified）。
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result 是一次分类的带标签结果（取代“用异常传递告警”的做法）。
type Result struct {
	Category domain.Category
	Kind     Kind
	Width    int
	Height   int
	Cause    error // Kind != KindOK 时非空
}

// Prober 是图片元数据探测能力：只返回像素尺寸；超过安全阈值时返回 *imgx.BombError。
type Prober interface {
	Dimensions(path string) (width, height int, err error)
}

// 通过可替换的函数指针，让测试能稳定模拟 stat 失败。
var statFunc = os.Stat

// Classifier 是无共享可变状态的分类器，可被多个 worker 并发调用。
type Classifier struct {
	mode   string
	prober Prober
}

// New 构造分类器。mode 为 domain.SortResolution 或 domain.SortSize；prober 为 nil 时使用 imgx.Prober{}。
func New(mode string, prober Prober) (*Classifier, error) {
	switch mode {
	case domain.SortResolution, domain.SortSize:
	default:
		return nil, fmt.Errorf("未知的排序模式 %q（只能是 resolution 或 size）", mode)
	}
	if prober == nil {
		prober = imgx.Prober{}
	}
	return &Classifier{mode: mode, prober: prober}, nil
}

// Mode 返回分类器的排序模式。
func (c *Classifier) Mode() string { return c.mode }

// Classify 为 task 给出唯一类别（全函数：任何输入都有结果）。
func (c *Classifier) Classify(task domain.FileTask) Result {
	if c.mode == domain.SortSize {
		return c.classifySize(task)
	}

	switch {
	case IsImage(task.Ext):
		return c.classifyImage(task)
	case IsVideo(task.Ext):
		// 视频不打开文件，直接按扩展名归类。
		return Result{Category: domain.CatVideos}
	default:
		return Result{Category: domain.CatUnclassified}
	}
}

func (c *Classifier) classifyImage(task domain.FileTask) Result {
	w, h, err := c.prober.Dimensions(task.AbsPath)
	if err != nil {
		var be *imgx.BombError
		if errors.As(err, &be) {
			return Result{Category: domain.CatUnsorted, Kind: KindWarning, Width: be.Width, Height: be.Height, Cause: err}
		}
		return Result{Category: domain.CatError, Kind: KindError, Cause: err}
	}
	return Result{Category: ByResolution(w, h), Width: w, Height: h}
}

func (c *Classifier) classifySize(task domain.FileTask) Result {
	fi, err := statFunc(task.AbsPath)
	if err != nil {
		return Result{Category: domain.CatError, Kind: KindError, Cause: err}
	}
	if fi.IsDir() {
		return Result{Category: domain.CatError, Kind: KindError, Cause: fmt.Errorf("%q 是目录", task.AbsPath)}
	}
	return Result{Category: BySize(fi.Size())}
}

// ByResolution 按降序档位表取第一个“宽高都不小于阈值”的档位；都不命中则 Unclassified。
func ByResolution(width, height int) domain.Category {
	for _, t := range domain.ResolutionTiers {
		if width >= t.Width && height >= t.Height {
			return t.Category
		}
	}
	return domain.CatUnclassified
}

// BySize 按 [min, max) 区间取档位；都不命中（例如负数）则 Unclassified。
func BySize(size int64) domain.Category {
	for _, t := range domain.SizeTiers {
		if t.Contains(size) {
			return t.Category
		}
	}
	return domain.CatUnclassified
}
