// Package errlog 维护一个追加写的错误日志（每行一条记录）。
//
// 行格式固定为：
//
//	<path> | <message> | Size: <N> bytes
//
// 多个 worker 并发追加时，每条记录由一次 Write 完成，不会出现交错的半行。
package errlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// 测试可替换：记录文件大小。
var statFunc = os.Stat

type Log struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// Open 以 O_APPEND 打开（或创建）日志文件；父目录不存在时会创建。
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Log{path: path, f: f}, nil
}

// Reset 清空日志文件（不存在则创建空文件）。
//
// 只由命令行在一次 run 开始前调用；核心流程只追加、从不清空。
func Reset(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, nil, 0o644)
}

func (l *Log) Path() string { return l.path }

// Append 追加一条记录；Size 为记录时刻该文件的大小（文件不存在或无法 stat 时为 0）。
func (l *Log) Append(path, message string) error {
	var size int64
	if fi, err := statFunc(path); err == nil {
		size = fi.Size()
	}
	line := Format(path, message, size)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return os.ErrClosed
	}
	_, err := l.f.Write([]byte(line))
	return err
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// Format 生成一行日志（含结尾换行）。message 中的换行会被替换为空格，保证一条记录只占一行。
func Format(path, message string, size int64) string {
	message = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(message)
	return fmt.Sprintf("%s | %s | Size: %d bytes\n", path, message, size)
}
