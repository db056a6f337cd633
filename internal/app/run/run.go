package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/John-Robertt/PixSort/internal/app/placement"
	"github.com/John-Robertt/PixSort/internal/app/space"
	"github.com/John-Robertt/PixSort/internal/classify"
	"github.com/John-Robertt/PixSort/internal/config"
	"github.com/John-Robertt/PixSort/internal/domain"
	"github.com/John-Robertt/PixSort/internal/errlog"
	"github.com/John-Robertt/PixSort/internal/infra/fsx"
	"github.com/John-Robertt/PixSort/internal/infra/imgx"
	"github.com/John-Robertt/PixSort/internal/logging"
	"github.com/John-Robertt/PixSort/internal/scan"
)

// poolWidth 返回 worker 数量：clamp(2*NumCPU, 2, 8)。测试可替换。
var poolWidth = func() int {
	n := 2 * runtime.NumCPU()
	if n < 2 {
		n = 2
	}
	if n > 8 {
		n = 8
	}
	return n
}

// Deps 是 Execute 的可替换依赖；零值可用。
type Deps struct {
	// Prober 为 nil 时使用 imgx.Prober{MaxPixels: eff.MaxPixels}。
	Prober classify.Prober
	// Guard 为 nil 时新建（只在 copy 时使用）。
	Guard *space.Guard
	// ErrLog 为 nil 时以追加方式打开 eff.LogFile，并在返回前关闭。
	ErrLog *errlog.Log
	Logger *slog.Logger
	RunID  string
}

// Execute 执行一次 run，并返回对外稳定的 RunReport。
//
// 单个文件的失败只影响该文件（记日志、计入 failed）；返回非 nil error 的情况只有：
// - 启动失败（输入目录不可用、错误日志无法打开等），此时没有任何文件被处理
// - space_policy=abort 且检测到空间不足（*space.InsufficientError）
// - ctx 被取消（ctx.Err()）
//
// 无论哪种情况，返回的 RunReport 都已 Finalize，可直接输出。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) (domain.RunReport, error) {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("run_id", deps.RunID)

	rr := domain.RunReport{
		RunID:     deps.RunID,
		Input:     eff.Input,
		Output:    eff.Output,
		Action:    eff.Action,
		SortMode:  eff.Sort,
		StartedAt: started,
		Files:     make([]domain.FileResult, 0, 128),
	}
	fail := func(err error) (domain.RunReport, error) {
		rr.Aborted = err.Error()
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr, err
	}

	if err := checkRoots(eff.Input, eff.Output); err != nil {
		return fail(err)
	}

	prober := deps.Prober
	if prober == nil {
		prober = imgx.Prober{MaxPixels: eff.MaxPixels}
	}
	cls, err := classify.New(eff.Sort, prober)
	if err != nil {
		return fail(err)
	}
	placer, err := placement.New(eff.Output, eff.Collision)
	if err != nil {
		return fail(err)
	}
	guard := deps.Guard
	if guard == nil {
		guard = space.NewGuard(logger)
	}

	elog := deps.ErrLog
	if elog == nil {
		l, err := errlog.Open(eff.LogFile)
		if err != nil {
			return fail(fmt.Errorf("打开错误日志失败：%w", err))
		}
		defer l.Close()
		elog = l
	}

	scanStarted := time.Now()
	excludes := append(append([]string(nil), eff.ExcludeDirs...), eff.Output)
	tasks, skipped, err := scan.Files(eff.Input, excludes)
	if err != nil {
		return fail(fmt.Errorf("扫描输入目录失败：%w", err))
	}
	tasks = dropPath(tasks, eff.LogFile)
	for _, s := range skipped {
		logger.Warn("跳过无法读取的路径", "path", s.Path, "error", s.Err)
		_ = elog.Append(s.Path, fmt.Sprintf("无法读取：%v", s.Err))
	}
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"files":   len(tasks),
			"skipped": len(skipped),
		}, time.Since(scanStarted))
	}

	workers := poolWidth()
	rr.Total = len(tasks)
	rr.Workers = workers
	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers": workers,
			"total":   len(tasks),
		}, 0)
	}
	logger.Info("开始处理", "input", eff.Input, "output", eff.Output, "files", len(tasks), "workers", workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ex := &executor{
		eff:    eff,
		cls:    cls,
		placer: placer,
		guard:  guard,
		elog:   elog,
		logger: logger,
		agg:    domain.NewAggregator(),
		cancel: cancel,
	}

	type execResult struct {
		res domain.FileResult
		dur time.Duration
	}

	jobs := make(chan domain.FileTask)
	results := make(chan execResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				oneStarted := time.Now()
				r := ex.process(runCtx, t)
				results <- execResult{res: r, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		defer func() {
			close(jobs)
			wg.Wait()
			close(results)
		}()
		for _, t := range tasks {
			// 先检查取消：select 在两个分支都就绪时是随机选择的。
			if runCtx.Err() != nil {
				return
			}
			select {
			case <-runCtx.Done():
				return
			case jobs <- t:
			}
		}
	}()

	done := 0
	for it := range results {
		done++
		rr.Files = append(rr.Files, it.res)
		if obs != nil {
			obs.OnFileDone(done, len(tasks), it.res, it.dur)
		}
	}

	rr.Summary = ex.agg.Summary()
	rr.FinishedAt = time.Now().UTC()

	var runErr error
	if abortErr := ex.abortErr(); abortErr != nil {
		rr.Aborted = abortErr.Error()
		runErr = abortErr
	} else if err := ctx.Err(); err != nil {
		rr.Canceled = true
		runErr = err
	}
	rr.Finalize()

	logger.Info("处理结束",
		"transferred", rr.Summary.Transferred,
		"failed", rr.Summary.Failed,
		"pending", rr.Pending,
		"bytes", rr.Summary.Bytes,
	)
	return rr, runErr
}

type executor struct {
	eff    config.EffectiveConfig
	cls    *classify.Classifier
	placer *placement.Engine
	guard  *space.Guard
	elog   *errlog.Log
	logger *slog.Logger
	agg    *domain.Aggregator

	cancel  context.CancelFunc
	abortMu sync.Mutex
	abort   error
}

func (ex *executor) abortErr() error {
	ex.abortMu.Lock()
	defer ex.abortMu.Unlock()
	return ex.abort
}

func (ex *executor) triggerAbort(err error) {
	ex.abortMu.Lock()
	defer ex.abortMu.Unlock()
	if ex.abort != nil {
		return
	}
	ex.abort = err
	ex.logger.Error("空间不足，停止派发剩余文件", "error", err)
	ex.cancel()
}

// process 处理单个文件：Classifying -> (AdmissionCheck) -> Transferring -> Succeeded|Failed。
// 每个文件恰好产出一个 Outcome，并恰好 Record 一次。
func (ex *executor) process(ctx context.Context, t domain.FileTask) domain.FileResult {
	res := ex.cls.Classify(t)
	out := domain.Outcome{Task: t, Category: res.Category}

	switch res.Kind {
	case classify.KindWarning:
		out.Warning = res.Cause.Error()
		ex.logger.Warn("图片触发安全检查，归入 Unsorted", "path", t.AbsPath, "error", res.Cause)
		ex.appendLog(t.AbsPath, res.Cause.Error())
	case classify.KindError:
		ex.logger.Error("读取元数据失败，归入 Unclassified", "path", t.AbsPath, "error", res.Cause)
		ex.appendLog(t.AbsPath, res.Cause.Error())
	default:
		ex.logger.Debug("分类完成", "path", t.AbsPath, "category", res.Category, "width", res.Width, "height", res.Height)
	}

	folder, dst, err := ex.placer.Prepare(res.Category, t.AbsPath)
	if err != nil {
		return ex.failed(out, "", fmt.Errorf("创建目标目录失败：%w", err))
	}
	out.DstAbs = dst

	if err := ex.transfer(ctx, t, dst); err != nil {
		return ex.failed(out, dst, fmt.Errorf("%s 失败：%w", ex.eff.Action, err))
	}

	out.Bytes = t.Size
	if fi, err := os.Stat(dst); err == nil {
		out.Bytes = fi.Size()
	}
	out.Folder = placement.FolderFor(res.Category)

	if res.Kind == classify.KindError {
		// 文件已放入 Unclassified，但元数据读取失败仍计为失败。
		out.Status = domain.OutcomeFailed
		out.Err = res.Cause
		out.Bytes = 0
		ex.agg.Record(out)
		return domain.FileResultFrom(out, ex.rel(dst))
	}

	out.Status = domain.OutcomeTransferred
	ex.agg.Record(out)
	ex.logger.Debug("完成", "path", t.AbsPath, "dst", dst, "folder", folder, "bytes", out.Bytes)
	return domain.FileResultFrom(out, ex.rel(dst))
}

func (ex *executor) transfer(ctx context.Context, t domain.FileTask, dst string) error {
	if ex.eff.Action != domain.ActionCopy {
		return fsx.Move(ctx, t.AbsPath, dst)
	}

	// 以复制前的实际大小做准入；扫描之后文件可能还在增长。
	fi, err := os.Stat(t.AbsPath)
	if err != nil {
		return err
	}
	release, err := ex.guard.Admit(ex.eff.Output, fi.Size())
	if err != nil {
		if ex.eff.SpacePolicy == config.SpacePolicyAbort {
			ex.triggerAbort(err)
		}
		return err
	}
	defer release()
	return fsx.CopyFile(ctx, t.AbsPath, dst)
}

func (ex *executor) failed(out domain.Outcome, dst string, err error) domain.FileResult {
	out.Status = domain.OutcomeFailed
	out.Err = err
	out.Bytes = 0
	ex.logger.Error("处理失败", "path", out.Task.AbsPath, "error", err)
	ex.appendLog(out.Task.AbsPath, err.Error())
	ex.agg.Record(out)

	rel := ""
	if dst != "" {
		rel = ex.rel(dst)
	}
	return domain.FileResultFrom(out, rel)
}

func (ex *executor) appendLog(path, msg string) {
	if err := ex.elog.Append(path, msg); err != nil {
		ex.logger.Warn("写入错误日志失败", "path", path, "error", err)
	}
}

// rel 把目标路径转为相对 output 根的 slash 路径。
func (ex *executor) rel(dst string) string {
	r, err := filepath.Rel(ex.eff.Output, dst)
	if err != nil {
		return filepath.ToSlash(dst)
	}
	return filepath.ToSlash(r)
}

func checkRoots(input, output string) error {
	fi, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("输入目录不可用：%w", err)
	}
	if !fi.IsDir() {
		return &fsx.PathTypeConflictError{Path: input, Want: "dir", Got: "file"}
	}
	if filepath.Clean(input) == filepath.Clean(output) {
		return errors.New("输出目录不能与输入目录相同")
	}
	return fsx.EnsureDir(output)
}

func dropPath(tasks []domain.FileTask, abs string) []domain.FileTask {
	if abs == "" {
		return tasks
	}
	abs = filepath.Clean(abs)
	out := tasks[:0]
	for _, t := range tasks {
		if t.AbsPath != abs {
			out = append(out, t)
		}
	}
	return out
}
