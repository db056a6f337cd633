package domain

import "sync"

const (
	OutcomeTransferred = "transferred"
	OutcomeFailed      = "failed"
)

// Outcome 是单个 FileTask 的终态结果（TransferOutcome）。
// 每个 FileTask 恰好产出一个 Outcome，并恰好被 Aggregator 记录一次。
type Outcome struct {
	Task     FileTask
	Category Category
	Status   string // transferred | failed
	Warning  string // 非空表示“告警但未失败”（例如解压炸弹 -> Unsorted）

	Bytes  int64  // 成功时为目标文件大小
	Folder string // 目标文件夹名（例如 "Full HD"）
	DstAbs string

	Err error
}

// Succeeded 报告该结果是否计入 transferred。
func (o Outcome) Succeeded() bool { return o.Status == OutcomeTransferred }

// FolderStat 是某个目标目录的累计统计。
type FolderStat struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// Summary 是一次 run 的汇总快照（只在所有 worker 退出后读取）。
type Summary struct {
	Transferred int                   `json:"transferred"`
	Failed      int                   `json:"failed"`
	Bytes       int64                 `json:"bytes"`
	Folders     map[string]FolderStat `json:"folders"`
}

// Processed 返回已到达终态的文件数。
func (s Summary) Processed() int { return s.Transferred + s.Failed }

// Aggregator 是并发安全的汇总器。
//
// 约束：
// - 每个 Outcome 只调用一次 Record（成功或失败都算一次）
// - Record 在锁内一次性完成全部字段更新，不存在“只更新了一半”的中间态
type Aggregator struct {
	mu          sync.Mutex
	transferred int
	failed      int
	bytes       int64
	folders     map[string]*FolderStat
}

func NewAggregator() *Aggregator {
	return &Aggregator{folders: make(map[string]*FolderStat, 16)}
}

// Record 把一个终态结果计入汇总。
func (a *Aggregator) Record(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !o.Succeeded() {
		a.failed++
		return
	}

	a.transferred++
	a.bytes += o.Bytes

	fs, ok := a.folders[o.Folder]
	if !ok {
		fs = &FolderStat{}
		a.folders[o.Folder] = fs
	}
	fs.Count++
	fs.Bytes += o.Bytes
}

// Summary 返回当前汇总的深拷贝。
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		Transferred: a.transferred,
		Failed:      a.failed,
		Bytes:       a.bytes,
		Folders:     make(map[string]FolderStat, len(a.folders)),
	}
	for k, v := range a.folders {
		s.Folders[k] = *v
	}
	return s
}
