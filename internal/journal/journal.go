// Package journal 把每次 run 的汇总与逐文件结果记录到 SQLite（可选功能，journal=true 时启用）。
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/John-Robertt/PixSort/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion 是当前 schema 版本；schema 变化时递增。
const schemaVersion = 1

// ErrSchemaMismatch 表示数据库 schema 版本与程序期望不一致。
var ErrSchemaMismatch = errors.New("journal schema 版本不匹配")

// Store 是基于 SQLite 的 run 历史。
type Store struct {
	db   *sql.DB
	path string
}

// RunRow 是 runs 表的一行（用于 history 输出）。
type RunRow struct {
	RunID       string    `json:"run_id"`
	Input       string    `json:"input"`
	Output      string    `json:"output"`
	Action      string    `json:"action"`
	SortMode    string    `json:"sort_mode"`
	Workers     int       `json:"workers"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Total       int       `json:"total"`
	Transferred int       `json:"transferred"`
	Failed      int       `json:"failed"`
	Pending     int       `json:"pending"`
	Bytes       int64     `json:"bytes"`
	Canceled    bool      `json:"canceled"`
	Aborted     string    `json:"aborted"`
}

// Open 打开（或创建）journal 数据库并初始化 schema。
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建 journal 目录失败：%w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开 journal 失败：%w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("执行 %q 失败：%w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("检查 schema_version 失败：%w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("读取 schema 版本失败：%w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w：数据库为 %d，期望 %d（请删除 %s 后重试）", ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始 schema 事务失败：%w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("创建 schema 失败：%w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("写入 schema 版本失败：%w", err)
	}
	return tx.Commit()
}

// RecordRun 在一个事务内写入 run 汇总与全部逐文件结果。同一 run_id 重复写入会替换旧记录。
func (s *Store) RecordRun(ctx context.Context, rr domain.RunReport) error {
	if rr.RunID == "" {
		return errors.New("run_id 不能为空")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败：%w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		"DELETE FROM transfers WHERE run_id = ?",
		"DELETE FROM runs WHERE run_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, rr.RunID); err != nil {
			return fmt.Errorf("清理旧记录失败：%w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		run_id, input, output, action, sort_mode, workers, started_at, finished_at,
		total, transferred, failed, pending, bytes, canceled, aborted
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rr.RunID, rr.Input, rr.Output, rr.Action, rr.SortMode, rr.Workers,
		rr.StartedAt.UTC().Format(time.RFC3339Nano), rr.FinishedAt.UTC().Format(time.RFC3339Nano),
		rr.Total, rr.Summary.Transferred, rr.Summary.Failed, rr.Pending, rr.Summary.Bytes,
		boolToInt(rr.Canceled), rr.Aborted,
	)
	if err != nil {
		return fmt.Errorf("写入 run 失败：%w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transfers (
		run_id, src, dst, category, status, warning, error_msg, bytes
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("准备语句失败：%w", err)
	}
	defer stmt.Close()

	for _, f := range rr.Files {
		if _, err := stmt.ExecContext(ctx, rr.RunID, f.Src, f.Dst, f.Category, f.Status, f.Warning, f.ErrorMsg, f.Bytes); err != nil {
			return fmt.Errorf("写入文件结果失败（%s）：%w", f.Src, err)
		}
	}

	return tx.Commit()
}

// ListRuns 按开始时间倒序返回最近 n 次 run（n <= 0 表示全部）。
func (s *Store) ListRuns(ctx context.Context, n int) ([]RunRow, error) {
	q := `SELECT run_id, input, output, action, sort_mode, workers, started_at, finished_at,
		total, transferred, failed, pending, bytes, canceled, aborted
		FROM runs ORDER BY started_at DESC, run_id`
	args := []any{}
	if n > 0 {
		q += " LIMIT ?"
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("查询 runs 失败：%w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			r                 RunRow
			started, finished string
			canceled          int
		)
		if err := rows.Scan(
			&r.RunID, &r.Input, &r.Output, &r.Action, &r.SortMode, &r.Workers, &started, &finished,
			&r.Total, &r.Transferred, &r.Failed, &r.Pending, &r.Bytes, &canceled, &r.Aborted,
		); err != nil {
			return nil, fmt.Errorf("读取 runs 失败：%w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		r.Canceled = canceled != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Transfers 返回某次 run 的逐文件结果（按 src 排序）。
func (s *Store) Transfers(ctx context.Context, runID string) ([]domain.FileResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT src, dst, category, status, warning, error_msg, bytes
		FROM transfers WHERE run_id = ? ORDER BY src`, runID)
	if err != nil {
		return nil, fmt.Errorf("查询 transfers 失败：%w", err)
	}
	defer rows.Close()

	var out []domain.FileResult
	for rows.Next() {
		var f domain.FileResult
		if err := rows.Scan(&f.Src, &f.Dst, &f.Category, &f.Status, &f.Warning, &f.ErrorMsg, &f.Bytes); err != nil {
			return nil, fmt.Errorf("读取 transfers 失败：%w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
