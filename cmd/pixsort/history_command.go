package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/PixSort/internal/config"
	"github.com/John-Robertt/PixSort/internal/journal"
)

func newHistoryCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		cfgPath string
		output  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "列出输出目录的 run 历史（需要配置 journal = true）",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return usageErrorf("-n 不能为负数：%d", limit)
			}
			cwd, err := getwd()
			if err != nil {
				return fmt.Errorf("读取当前目录失败：%w", err)
			}
			out, err := config.ResolveOutput(cwd, cfgPath, output)
			if err != nil {
				return err
			}

			dbPath := config.EffectiveConfig{Output: out}.StatePath("journal.db")
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				fmt.Fprintf(stderr, "%q 没有 run 历史（在配置文件中设置 journal = true 以启用）\n", out)
				if !isTerminal(stdout) {
					fmt.Fprintln(stdout, "[]")
				}
				return nil
			}

			st, err := journal.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if !isTerminal(stdout) {
				if runs == nil {
					runs = []journal.RunRow{}
				}
				return json.NewEncoder(stdout).Encode(runs)
			}
			fmt.Fprintln(stdout, renderHistory(runs))
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "", "输出目录（默认读取配置文件或 <cwd>/Sorted_images）")
	fl.IntVarP(&limit, "limit", "n", 10, "最多显示的条数（0 表示全部）")
	fl.StringVarP(&cfgPath, "config", "c", "", "配置文件")
	return cmd
}

func renderHistory(runs []journal.RunRow) string {
	headers := []string{"RUN", "STARTED", "ACTION", "SORT", "TOTAL", "OK", "FAILED", "PENDING", "SIZE", "STATE"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		state := "ok"
		switch {
		case r.Aborted != "":
			state = "aborted"
		case r.Canceled:
			state = "canceled"
		case r.Failed > 0:
			state = "failed"
		}
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			id,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Action,
			r.SortMode,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Transferred),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Pending),
			humanize.IBytes(uint64(r.Bytes)),
			state,
		})
	}
	return renderTable(headers, rows, []columnAlignment{
		alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft,
	})
}
