package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	ActionMove = "move"
	ActionCopy = "copy"
)

const (
	SortResolution = "resolution"
	SortSize       = "size"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	RunID    string `json:"run_id"`
	Input    string `json:"input"`
	Output   string `json:"output"`
	Action   string `json:"action"`
	SortMode string `json:"sort_mode"`
	Workers  int    `json:"workers"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Total 是扫描得到的文件数；Pending 是因取消/中止而从未派发的文件数。
	Total    int    `json:"total"`
	Pending  int    `json:"pending"`
	Canceled bool   `json:"canceled"`
	Aborted  string `json:"aborted"`

	Summary Summary      `json:"summary"`
	Files   []FileResult `json:"files"`
}

type FileResult struct {
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Warning  string `json:"warning"`
	ErrorMsg string `json:"error_msg"`
	Bytes    int64  `json:"bytes"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) files 稳定排序：按 src 字典序（并发完成顺序不可观测）
// 3) pending 由 total 与 summary 推导
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Files, func(i, j int) bool { return r.Files[i].Src < r.Files[j].Src })

	if r.Summary.Folders == nil {
		r.Summary.Folders = map[string]FolderStat{}
	}
	r.Pending = r.Total - r.Summary.Processed()
	if r.Pending < 0 {
		r.Pending = 0
	}
}

// OK 报告本次 run 是否“完全成功”（无失败、无中止、无取消）。
func (r RunReport) OK() bool {
	return r.Summary.Failed == 0 && r.Aborted == "" && !r.Canceled && r.Pending == 0
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}

// FileResultFrom 把 Outcome 转为对外的 FileResult（路径相对 input/output 根）。
func FileResultFrom(o Outcome, dst string) FileResult {
	fr := FileResult{
		Src:      o.Task.RelPath,
		Dst:      dst,
		Category: string(o.Category),
		Status:   o.Status,
		Warning:  o.Warning,
		Bytes:    o.Bytes,
	}
	if o.Err != nil {
		fr.ErrorMsg = o.Err.Error()
	}
	return fr
}
