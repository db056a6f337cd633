package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/PixSort/internal/domain"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderSummary 渲染终端汇总：每个目标目录一行，末尾附总计。
func renderSummary(rr domain.RunReport) string {
	folders := make([]string, 0, len(rr.Summary.Folders))
	for k := range rr.Summary.Folders {
		folders = append(folders, k)
	}
	sort.Slice(folders, func(i, j int) bool {
		ri, rj := folderRank(folders[i]), folderRank(folders[j])
		if ri != rj {
			return ri < rj
		}
		return folders[i] < folders[j]
	})

	rows := make([][]string, 0, len(folders)+1)
	for _, name := range folders {
		fs := rr.Summary.Folders[name]
		rows = append(rows, []string{name, strconv.Itoa(fs.Count), humanize.IBytes(uint64(fs.Bytes))})
	}
	rows = append(rows, []string{"总计", strconv.Itoa(rr.Summary.Transferred), humanize.IBytes(uint64(rr.Summary.Bytes))})

	tbl := renderTable([]string{"FOLDER", "FILES", "SIZE"}, rows, []columnAlignment{alignLeft, alignRight, alignRight})
	return tbl + "\n" + summaryLine(rr)
}

// summaryLine 是一行摘要（非终端时写 stderr）。
func summaryLine(rr domain.RunReport) string {
	dur := rr.FinishedAt.Sub(rr.StartedAt)
	if dur < 0 {
		dur = 0
	}
	return fmt.Sprintf("完成：processed=%d %s=%d failed=%d pending=%d size=%s elapsed=%s",
		rr.Summary.Processed(), actionPast(rr.Action), rr.Summary.Transferred, rr.Summary.Failed, rr.Pending,
		humanize.IBytes(uint64(rr.Summary.Bytes)), dur.Round(10*time.Millisecond),
	)
}

func actionPast(action string) string {
	if action == domain.ActionCopy {
		return "copied"
	}
	return "moved"
}

// folderRank 让汇总表按档位表顺序排列（高分辨率在前），未知目录排在最后。
func folderRank(name string) int {
	for i, c := range domain.Categories() {
		if string(c) == name {
			return i
		}
	}
	return len(domain.Categories())
}
