package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// 测试可替换：当前工作目录（配置发现与默认 output 的基准）。
var getwd = os.Getwd

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pixsort",
		Short:         "按分辨率/大小/类型整理图片与视频",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("未知命令：%q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(newRunCommand(stdout, stderr))
	rootCmd.AddCommand(newHistoryCommand(stdout, stderr))
	return rootCmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageErrorf("%s 不接受位置参数：%q", cmd.Name(), args)
	}
	return nil
}
