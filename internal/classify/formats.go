package classify

import "github.com/John-Robertt/PixSort/internal/infra/imgx"

var imageExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".bmp": {}, ".gif": {}, ".tif": {}, ".tiff": {},
	".webp": {}, ".jfif": {}, ".heif": {}, ".heic": {}, ".psd": {}, ".ico": {}, ".cur": {},
	".tga": {},
}

var videoExts = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {}, ".webm": {},
	".m4v": {}, ".mpg": {}, ".mpeg": {}, ".3gp": {}, ".ts": {}, ".mts": {}, ".m2ts": {},
}

// IsImage 判断扩展名（小写，含 '.'）是否属于受支持的图片格式（含相机 RAW）。
func IsImage(ext string) bool {
	if _, ok := imageExts[ext]; ok {
		return true
	}
	return imgx.IsRAW(ext)
}

// IsVideo 判断扩展名（小写，含 '.'）是否属于受支持的视频格式。
func IsVideo(ext string) bool {
	_, ok := videoExts[ext]
	return ok
}
