package domain

// Category 是一个文件最终被归入的类别（闭合枚举）。
//
// 约束：每个 FileTask 恰好得到一个 Category；分类是全函数，不存在“跳过”。
type Category string

// 分辨率档位（按面积阈值降序）。
const (
	Cat16K    Category = "16K"
	Cat12K    Category = "12K"
	Cat10K    Category = "10K"
	Cat8K     Category = "8K"
	Cat5K     Category = "5K"
	Cat4K     Category = "4K"
	Cat2K     Category = "2K"
	CatFullHD Category = "Full HD"
	CatHD     Category = "HD"
	CatSD     Category = "SD"
	CatLow    Category = "Low"
)

// 大小档位（左闭右开区间，升序）。
const (
	CatSmall      Category = "Small"
	CatMedium     Category = "Medium"
	CatLarge      Category = "Large"
	CatExtraLarge Category = "Extra Large"
)

const (
	CatVideos Category = "Videos"
	// CatUnsorted 用于触发安全检查（例如解压炸弹）的文件，不是失败。
	CatUnsorted Category = "Unsorted"
	// CatUnclassified 用于没有任何规则命中的文件，不是错误。
	CatUnclassified Category = "Unclassified"
	// CatError 表示分类本身失败（解码/IO）；落盘目录与 Unclassified 相同。
	CatError Category = "Error"
)

// ResolutionTier 是一个分辨率档位：宽高都 >= 阈值才算命中。
type ResolutionTier struct {
	Category Category
	Width    int
	Height   int
}

// ResolutionTiers 已按阈值降序排列；分类时取第一个命中的档位。
var ResolutionTiers = []ResolutionTier{
	{Cat16K, 15360, 8640},
	{Cat12K, 12288, 6480},
	{Cat10K, 10240, 4320},
	{Cat8K, 7680, 4320},
	{Cat5K, 5120, 2880},
	{Cat4K, 3840, 2160},
	{Cat2K, 2560, 1440},
	{CatFullHD, 1920, 1080},
	{CatHD, 1280, 720},
	{CatSD, 720, 480},
	{CatLow, 0, 0},
}

const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
)

// SizeTier 是一个大小档位，区间为 [Min, Max)；Max<0 表示无上界。
type SizeTier struct {
	Category Category
	Min      int64
	Max      int64
}

// Contains 判断 size 是否落在 [Min, Max) 内。
func (t SizeTier) Contains(size int64) bool {
	if size < t.Min {
		return false
	}
	return t.Max < 0 || size < t.Max
}

// SizeTiers 按区间升序排列，区间首尾相接、互不重叠。
var SizeTiers = []SizeTier{
	{CatSmall, 0, 5 * MiB},
	{CatMedium, 5 * MiB, 20 * MiB},
	{CatLarge, 20 * MiB, 100 * MiB},
	{CatExtraLarge, 100 * MiB, -1},
}

// Categories 返回全部合法类别（用于校验/展示）。
func Categories() []Category {
	out := make([]Category, 0, len(ResolutionTiers)+len(SizeTiers)+4)
	for _, t := range ResolutionTiers {
		out = append(out, t.Category)
	}
	for _, t := range SizeTiers {
		out = append(out, t.Category)
	}
	return append(out, CatVideos, CatUnsorted, CatUnclassified, CatError)
}

// Valid 判断 c 是否属于闭合枚举。
func (c Category) Valid() bool {
	for _, x := range Categories() {
		if x == c {
			return true
		}
	}
	return false
}
