package domain

// FileTask 描述一次扫描得到的输入文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 创建后不可变；同一个 FileTask 只会被一个 worker 处理
type FileTask struct {
	AbsPath string
	RelPath string
	Ext     string // 小写，含 '.'，例如 ".jpg"
	Size    int64
	ModUnix int64
}
