package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/PixSort/internal/app/run"
	"github.com/John-Robertt/PixSort/internal/config"
	"github.com/John-Robertt/PixSort/internal/domain"
	"github.com/John-Robertt/PixSort/internal/errlog"
	"github.com/John-Robertt/PixSort/internal/infra/fsx"
	"github.com/John-Robertt/PixSort/internal/journal"
	"github.com/John-Robertt/PixSort/internal/logging"
)

type runFlags struct {
	config string
	input  string
	output string
	action string
	sort   string
}

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "扫描输入目录并把文件整理到输出目录",
		Long: `扫描输入目录（递归），按分类把文件移动或复制到输出目录下的子目录。

分类（--sort resolution，默认）：
  图片按像素尺寸归入 16K/12K/10K/8K/5K/4K/2K/Full HD/HD/SD/Low；
  视频归入 Videos；其余文件归入 Unclassified；
  超过像素上限的图片归入 Unsorted（记录到错误日志，不算失败）。
分类（--sort size）：
  全部文件按大小归入 Small/Medium/Large/Extra Large。

stdout 是终端时输出进度与汇总表；否则 stdout 只输出一个 JSON 报告。`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, f, stdout, stderr)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "输入目录（必填，可由配置文件 input 提供）")
	fl.StringVarP(&f.output, "output", "o", "", "输出目录（默认 <cwd>/Sorted_images）")
	fl.StringVar(&f.action, "action", domain.ActionMove, "move 或 copy")
	fl.StringVar(&f.sort, "sort", domain.SortResolution, "resolution 或 size")
	fl.StringVarP(&f.config, "config", "c", "", "配置文件（默认读取 <cwd>/pixsort.toml，若存在）")
	return cmd
}

func runRun(cmd *cobra.Command, f runFlags, stdout, stderr io.Writer) error {
	actionSet := cmd.Flags().Changed("action")
	sortSet := cmd.Flags().Changed("sort")
	if actionSet && f.action != domain.ActionMove && f.action != domain.ActionCopy {
		return usageErrorf("--action 只能是 move 或 copy，实际是 %q", f.action)
	}
	if sortSet && f.sort != domain.SortResolution && f.sort != domain.SortSize {
		return usageErrorf("--sort 只能是 resolution 或 size，实际是 %q", f.sort)
	}

	cwd, err := getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath: f.config,
		Input:      f.input,
		Output:     f.output,
		Action:     f.action,
		ActionSet:  actionSet,
		Sort:       f.sort,
		SortSet:    sortSet,
	})
	if err != nil {
		if config.Code(err) == config.ErrCodeMissingInput {
			return &usageError{err: err}
		}
		return err
	}

	logger, err := logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Writer: stderr})
	if err != nil {
		return err
	}

	// 同一个 output 同时只允许一个 run（移动/覆盖会互相踩踏）。
	if err := os.MkdirAll(filepath.Join(eff.Output, config.StateDir), 0o755); err != nil {
		return fmt.Errorf("创建状态目录失败：%w", err)
	}
	lock := flock.New(eff.StatePath("lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("获取输出目录锁失败：%w", err)
	}
	if !locked {
		return fmt.Errorf("另一个 pixsort 正在使用输出目录 %q", eff.Output)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("释放输出目录锁失败", "error", err)
		}
	}()

	// 错误日志只在 CLI 入口清空一次；run 过程中只追加。
	if err := errlog.Reset(eff.LogFile); err != nil {
		return fmt.Errorf("清空错误日志失败：%w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var obs run.Observer
	var ui *progressUI
	if w, ok := pickProgressWriter(stdout, stderr); ok {
		ui = newProgressUI(w, isTerminal(w))
		obs = ui
	}

	rr, runErr := run.Execute(ctx, eff, run.Deps{Logger: logger, RunID: uuid.NewString()}, obs)
	if ui != nil {
		ui.Stop()
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("run 未完整结束", "error", runErr)
	}

	code := exitOK
	if !rr.OK() {
		code = exitFailure
	}

	if err := writeReportFile(eff, rr); err != nil {
		fmt.Fprintf(stderr, "写入 report.json 失败：%v\n", err)
		code = exitFailure
	}
	if eff.Journal {
		if err := recordJournal(ctx, eff, rr); err != nil {
			fmt.Fprintf(stderr, "写入 journal 失败：%v\n", err)
			code = exitFailure
		}
	}

	emitReport(stdout, stderr, rr, runErr)
	if ui != nil {
		emitLocations(ui.w, eff)
	}

	if code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

func writeReportFile(eff config.EffectiveConfig, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(eff.Output, config.StateDir), "report.json", b)
}

func recordJournal(ctx context.Context, eff config.EffectiveConfig, rr domain.RunReport) error {
	if rr.RunID == "" {
		return nil
	}
	st, err := journal.Open(eff.StatePath("journal.db"))
	if err != nil {
		return err
	}
	defer st.Close()
	// 取消信号只影响派发；已产生的结果仍然要落盘。
	return st.RecordRun(context.WithoutCancel(ctx), rr)
}

// emitReport 按输出契约打印结果：
// - stdout 是终端：汇总表写 stdout，失败明细写 stderr
// - 否则：stdout 只输出一个 RunReport JSON，摘要行写 stderr
func emitReport(stdout, stderr io.Writer, rr domain.RunReport, runErr error) {
	if isTerminal(stdout) {
		fmt.Fprintln(stdout, renderSummary(rr))
		for _, f := range rr.Files {
			if f.Status == domain.OutcomeFailed {
				fmt.Fprintf(stderr, "%s: %s\n", f.Src, f.ErrorMsg)
			}
		}
		if runErr != nil {
			fmt.Fprintf(stderr, "未完整结束：%v\n", runErr)
		}
		return
	}

	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summaryLine(rr))
	if runErr != nil {
		fmt.Fprintf(stderr, "未完整结束：%v\n", runErr)
	}
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "output: %s\n", eff.Output)
	fmt.Fprintf(w, "logs: %s\n", eff.LogFile)
	fmt.Fprintf(w, "report: %s\n", eff.StatePath("report.json"))
}
