package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortPendingAndUTC(t *testing.T) {
	r := RunReport{
		Output:     "/abs/out",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Total:      4,
		Summary:    Summary{Transferred: 2, Failed: 1},
		Files: []FileResult{
			{Src: "b.jpg", Status: OutcomeTransferred},
			{Src: "a.jpg", Status: OutcomeFailed},
			{Src: "c/d.mp4", Status: OutcomeTransferred},
		},
	}

	r.Finalize()

	if r.Files[0].Src != "a.jpg" || r.Files[1].Src != "b.jpg" || r.Files[2].Src != "c/d.mp4" {
		t.Fatalf("files 排序不符合契约：%v", []string{r.Files[0].Src, r.Files[1].Src, r.Files[2].Src})
	}
	if r.Pending != 1 {
		t.Fatalf("pending 应为 total-processed=1，实际 %d", r.Pending)
	}
	if r.Summary.Folders == nil {
		t.Fatalf("folders 不应为 nil（JSON 需输出 {}）")
	}
	if r.OK() {
		t.Fatalf("存在失败与 pending 时 OK() 应为 false")
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestFileResultFrom_CarriesError(t *testing.T) {
	o := Outcome{
		Task:     FileTask{RelPath: "x/a.png"},
		Category: CatError,
		Status:   OutcomeFailed,
		Err:      errors.New("boom"),
	}
	fr := FileResultFrom(o, "Unclassified/a.png")
	if fr.Src != "x/a.png" || fr.Dst != "Unclassified/a.png" || fr.ErrorMsg != "boom" || fr.Category != "Error" {
		t.Fatalf("FileResult 不符合预期：%+v", fr)
	}
}
