package imgx

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"  // 注册 BMP 解码器
	_ "golang.org/x/image/tiff" // 注册 TIFF 解码器（也覆盖部分 TIFF 结构的 RAW）
	_ "golang.org/x/image/webp" // 注册 WebP 解码器
)

// DefaultMaxPixels 是解压炸弹阈值的默认值（与常见图像库的默认上限一致）。
const DefaultMaxPixels int64 = 1024 * 1024 * 1024 / 4 / 3

// BombError 表示图片像素数超过安全阈值（解压炸弹）。
// 这不是“坏图”：上层应把它当作告警处理，而不是失败。
type BombError struct {
	Path   string
	Width  int
	Height int
	Limit  int64
}

func (e *BombError) Error() string {
	return fmt.Sprintf("图片像素数 %d（%dx%d）超过解压炸弹阈值 %d：%s",
		int64(e.Width)*int64(e.Height), e.Width, e.Height, e.Limit, e.Path)
}

// IsBomb 判断 err 是否为 BombError。
func IsBomb(err error) bool {
	var e *BombError
	return errors.As(err, &e)
}

// Prober 只读取图片头部/元数据得到像素尺寸，从不解码像素数据。
//
// MaxPixels：0 表示使用 DefaultMaxPixels；<0 表示关闭解压炸弹检查。
// Prober 无可变状态，可被多个 worker 并发使用。
type Prober struct {
	MaxPixels int64
}

// Dimensions 返回图片的 (width, height)。
//
// - 超过阈值：返回尺寸 + *BombError
// - 其他失败（文件不存在/IO/头部损坏/不支持的编码）：返回普通 error
func (p Prober) Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	w, h, err := probe(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return 0, 0, err
	}

	limit := p.MaxPixels
	if limit == 0 {
		limit = DefaultMaxPixels
	}
	if limit > 0 && int64(w)*int64(h) > limit {
		return w, h, &BombError{Path: path, Width: w, Height: h, Limit: limit}
	}
	return w, h, nil
}

func probe(f *os.File, ext string) (int, int, error) {
	// RAW：优先读 EXIF 中的像素尺寸（TIFF 结构的首个 IFD 往往只是缩略图）。
	if IsRAW(ext) {
		if w, h, err := exifDimensions(f); err == nil {
			return w, h, nil
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return 0, 0, err
		}
	}

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("读取图片头失败：%w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("图片尺寸无效：%dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

func exifDimensions(r io.Reader) (int, int, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return 0, 0, err
	}

	pairs := [][2]exif.FieldName{
		{exif.PixelXDimension, exif.PixelYDimension},
		{exif.ImageWidth, exif.ImageLength},
	}
	for _, pair := range pairs {
		w, werr := exifInt(x, pair[0])
		h, herr := exifInt(x, pair[1])
		if werr == nil && herr == nil && w > 0 && h > 0 {
			return w, h, nil
		}
	}
	return 0, 0, errors.New("EXIF 中没有像素尺寸")
}

func exifInt(x *exif.Exif, name exif.FieldName) (int, error) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, err
	}
	return tag.Int(0)
}

var rawExts = map[string]struct{}{
	".dng": {}, ".nef": {}, ".cr2": {}, ".orf": {}, ".sr2": {}, ".arw": {}, ".raf": {},
	".dcr": {}, ".k25": {}, ".kdc": {}, ".raw": {}, ".3fr": {}, ".ari": {}, ".srw": {},
	".dcs": {}, ".drf": {}, ".mef": {}, ".nrw": {}, ".pef": {}, ".ptx": {}, ".pxn": {},
	".rw2": {}, ".rwl": {}, ".x3f": {}, ".xrf": {},
}

// IsRAW 判断扩展名（小写，含 '.'）是否为相机 RAW 格式。
func IsRAW(ext string) bool {
	_, ok := rawExts[ext]
	return ok
}
