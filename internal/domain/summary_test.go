package domain

import (
	"fmt"
	"sync"
	"testing"
)

func TestAggregator_ConcurrentRecord_NoLostUpdates(t *testing.T) {
	a := NewAggregator()

	const workers = 8
	const perWorker = 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if i%5 == 0 {
					a.Record(Outcome{Status: OutcomeFailed})
					continue
				}
				a.Record(Outcome{
					Status: OutcomeTransferred,
					Bytes:  10,
					Folder: fmt.Sprintf("/out/%d", i%3),
				})
			}
		}(w)
	}
	wg.Wait()

	s := a.Summary()
	total := workers * perWorker
	if s.Processed() != total {
		t.Fatalf("transferred+failed 应等于 %d，实际 %d", total, s.Processed())
	}
	if s.Failed != workers*(perWorker/5) {
		t.Fatalf("failed 计数不正确：%d", s.Failed)
	}
	if s.Bytes != int64(s.Transferred)*10 {
		t.Fatalf("bytes 与 transferred 不一致：bytes=%d transferred=%d", s.Bytes, s.Transferred)
	}

	var folderCount int
	var folderBytes int64
	for _, fs := range s.Folders {
		folderCount += fs.Count
		folderBytes += fs.Bytes
	}
	if folderCount != s.Transferred || folderBytes != s.Bytes {
		t.Fatalf("per-folder 汇总与总数不一致：count=%d bytes=%d summary=%+v", folderCount, folderBytes, s)
	}
}

func TestAggregator_SummaryIsCopy(t *testing.T) {
	a := NewAggregator()
	a.Record(Outcome{Status: OutcomeTransferred, Bytes: 3, Folder: "/o/HD"})

	s := a.Summary()
	s.Folders["/o/HD"] = FolderStat{Count: 99}

	if got := a.Summary().Folders["/o/HD"].Count; got != 1 {
		t.Fatalf("Summary 应返回深拷贝，实际 count=%d", got)
	}
}

func TestSizeTier_HalfOpenBoundaries(t *testing.T) {
	cases := []struct {
		size int64
		want Category
	}{
		{0, CatSmall},
		{5*MiB - 1, CatSmall},
		{5 * MiB, CatMedium},
		{20*MiB - 1, CatMedium},
		{20 * MiB, CatLarge},
		{100 * MiB, CatExtraLarge},
		{1 << 40, CatExtraLarge},
	}
	for _, c := range cases {
		var got Category
		for _, tier := range SizeTiers {
			if tier.Contains(c.size) {
				got = tier.Category
				break
			}
		}
		if got != c.want {
			t.Fatalf("size=%d 期望 %q，实际 %q", c.size, c.want, got)
		}
	}
}

func TestCategory_Valid(t *testing.T) {
	if !CatFullHD.Valid() || !CatExtraLarge.Valid() || !CatError.Valid() {
		t.Fatalf("内置类别应合法")
	}
	if Category("Huge").Valid() {
		t.Fatalf("未知类别不应合法")
	}
}
