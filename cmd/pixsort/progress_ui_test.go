package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/PixSort/internal/config"
	"github.com/John-Robertt/PixSort/internal/domain"
	"github.com/John-Robertt/PixSort/internal/journal"
)

func TestProgressUI_FileLines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf, false)
	p.OnStart(config.EffectiveConfig{Input: "/in", Output: "/out", Action: "copy", Sort: "resolution", Collision: "overwrite", SpacePolicy: "fail-file"})
	p.OnPhaseDone("exec", map[string]any{"workers": 2, "total": 3}, 0)

	p.OnFileDone(1, 3, domain.FileResult{Src: "x/a.jpg", Dst: "Full HD/a.jpg", Status: domain.OutcomeTransferred}, time.Second)
	p.OnFileDone(2, 3, domain.FileResult{Src: "b.png", Dst: "Unsorted/b.png", Status: domain.OutcomeTransferred, Warning: "too many pixels"}, 0)
	p.OnFileDone(3, 3, domain.FileResult{Src: "c.gif", Status: domain.OutcomeFailed, ErrorMsg: "copy 失败：目标卷空间不足"}, 0)
	p.Stop()

	out := buf.String()
	for _, want := range []string{
		"space_policy: fail-file",
		"[1/3] Copied a.jpg -> Full HD/",
		"[2/3] WARN b.png -> Unsorted/: too many pixels",
		"[3/3] FAIL c.gif: copy 失败：目标卷空间不足",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("非终端不应输出颜色转义：%q", out)
	}
	if p.ok != 2 || p.fail != 1 || p.warn != 1 {
		t.Fatalf("计数不符合预期：ok=%d fail=%d warn=%d", p.ok, p.fail, p.warn)
	}
}

func TestRenderSummary_OrderAndTotals(t *testing.T) {
	rr := domain.RunReport{
		Action: "move",
		Summary: domain.Summary{
			Transferred: 3,
			Bytes:       3 * 1024 * 1024,
			Folders: map[string]domain.FolderStat{
				"Videos":  {Count: 1, Bytes: 1024 * 1024},
				"4K":      {Count: 1, Bytes: 1024 * 1024},
				"Full HD": {Count: 1, Bytes: 1024 * 1024},
			},
		},
	}
	out := renderSummary(rr)

	i4k, ifhd, ivid := strings.Index(out, "4K"), strings.Index(out, "Full HD"), strings.Index(out, "Videos")
	if i4k < 0 || !(i4k < ifhd && ifhd < ivid) {
		t.Fatalf("汇总表应按档位顺序排列：\n%s", out)
	}
	if !strings.Contains(out, "3.0 MiB") || !strings.Contains(out, "moved=3") {
		t.Fatalf("汇总表缺少总计：\n%s", out)
	}
}

func TestRenderHistory_State(t *testing.T) {
	out := renderHistory([]journal.RunRow{
		{RunID: "0123456789abcdef", Action: "copy", SortMode: "size", Total: 2, Transferred: 1, Failed: 1, Bytes: 2048},
		{RunID: "r2", Aborted: "空间不足"},
	})
	if !strings.Contains(out, "01234567") || strings.Contains(out, "0123456789") {
		t.Fatalf("run id 应截断为 8 位：\n%s", out)
	}
	if !strings.Contains(out, "failed") || !strings.Contains(out, "aborted") || !strings.Contains(out, "2.0 KiB") {
		t.Fatalf("状态列不符合预期：\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("truncate 结果不符合预期：%q", got)
	}
	if got := truncate("  ab ", 6); got != "ab" {
		t.Fatalf("truncate 应去掉首尾空白：%q", got)
	}
}
