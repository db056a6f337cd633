package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/PixSort/internal/app/placement"
	"github.com/John-Robertt/PixSort/internal/domain"
	"github.com/John-Robertt/PixSort/internal/logging"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingInput 表示 CLI 与配置文件都没有给出 input。
	ErrCodeMissingInput = "config_missing_input"
)

const (
	// FileName 是 cwd 下自动发现的配置文件名。
	FileName = "pixsort.toml"
	// DefaultOutputDir 是未指定 output 时在 cwd 下使用的目录名。
	DefaultOutputDir = "Sorted_images"
	// DefaultLogFile 是错误日志相对 output 根的默认位置。
	DefaultLogFile = "logs.txt"
	// StateDir 是 output 根下保存 report/journal/lock 的目录。
	StateDir = ".pixsort"
)

const (
	SpacePolicyFailFile = "fail-file"
	SpacePolicyAbort    = "abort"
)

// CLIArgs 是命令行可覆盖的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --action=copy 必须能覆盖 config.action=move。
type CLIArgs struct {
	ConfigPath string

	Input  string
	Output string

	Action    string
	ActionSet bool

	Sort    string
	SortSet bool
}

// FileConfig 对应 pixsort.toml 的解析结构。
type FileConfig struct {
	Input       string   `toml:"input"`
	Output      string   `toml:"output"`
	Action      string   `toml:"action"`
	Sort        string   `toml:"sort"`
	Collision   string   `toml:"collision"`
	SpacePolicy string   `toml:"space_policy"`
	MaxPixels   *int64   `toml:"max_pixels"`
	LogFile     string   `toml:"log_file"`
	ExcludeDirs []string `toml:"exclude_dirs"`
	LogLevel    string   `toml:"log_level"`
	LogFormat   string   `toml:"log_format"`
	Journal     bool     `toml:"journal"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Input  string // 绝对路径
	Output string // 绝对路径

	Action      string // move | copy
	Sort        string // resolution | size
	Collision   string // overwrite | rename
	SpacePolicy string // fail-file | abort

	// MaxPixels 为图片像素上限；0 表示使用默认上限，负数表示关闭检查。
	MaxPixels int64

	LogFile     string // 绝对路径
	ExcludeDirs []string

	LogLevel  string
	LogFormat string
	Journal   bool

	// ConfigFile 为实际读取的配置文件（未读取时为空）。
	ConfigFile string
}

// StatePath 返回 output 根下状态目录中的文件路径。
func (c EffectiveConfig) StatePath(name string) string {
	return filepath.Join(c.Output, StateDir, name)
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingInput:
		return fmt.Sprintf("%s：未指定输入目录（-i/--input 或配置文件 input）", e.Code)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：配置无效：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，否则 config_not_found
// 2) 否则尝试读取 <cwd>/pixsort.toml（可选）
//
// 配置文件中的相对路径以配置文件所在目录为基准；CLI 的相对路径以 cwd 为基准。
//
// 覆盖优先级（固定）：
// - input/output/action/sort：CLI > config > 默认
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && required {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if !exists {
		cfgPath = ""
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

// ResolveOutput 只解析 output 根（供 history 等不需要 input 的命令使用），优先级同 LoadEffective。
func ResolveOutput(cwd, configPath, output string) (string, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return "", &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}
	if strings.TrimSpace(output) != "" {
		return absCleanFrom(cwdAbs, output), nil
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	if strings.TrimSpace(configPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, configPath)
	}
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return "", &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && strings.TrimSpace(configPath) != "" {
		return "", &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if exists && strings.TrimSpace(fc.Output) != "" {
		return absCleanFrom(filepath.Dir(cfgPath), fc.Output), nil
	}
	return filepath.Join(cwdAbs, DefaultOutputDir), nil
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	fileBase := cwdAbs
	if cfgPath != "" {
		fileBase = filepath.Dir(cfgPath)
	}

	// input：CLI > config；两者都没有则报错。
	var input string
	switch {
	case strings.TrimSpace(cli.Input) != "":
		input = absCleanFrom(cwdAbs, cli.Input)
	case strings.TrimSpace(fc.Input) != "":
		input = absCleanFrom(fileBase, fc.Input)
	default:
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingInput, Path: cfgPath}
	}

	// output：CLI > config > <cwd>/Sorted_images
	output := filepath.Join(cwdAbs, DefaultOutputDir)
	switch {
	case strings.TrimSpace(cli.Output) != "":
		output = absCleanFrom(cwdAbs, cli.Output)
	case strings.TrimSpace(fc.Output) != "":
		output = absCleanFrom(fileBase, fc.Output)
	}
	// 必须在任何落盘动作之前拒绝：状态目录与错误日志都写在 output 下。
	if input == output {
		return invalid(fmt.Errorf("输出目录不能与输入目录相同：%q", output))
	}

	action := pick(cli.ActionSet, cli.Action, fc.Action, domain.ActionMove)
	switch action {
	case domain.ActionMove, domain.ActionCopy:
	default:
		return invalid(fmt.Errorf("action 只能是 move 或 copy，实际是 %q", action))
	}

	sortMode := pick(cli.SortSet, cli.Sort, fc.Sort, domain.SortResolution)
	switch sortMode {
	case domain.SortResolution, domain.SortSize:
	default:
		return invalid(fmt.Errorf("sort 只能是 resolution 或 size，实际是 %q", sortMode))
	}

	collision := pick(false, "", fc.Collision, placement.CollisionOverwrite)
	switch collision {
	case placement.CollisionOverwrite, placement.CollisionRename:
	default:
		return invalid(fmt.Errorf("collision 只能是 overwrite 或 rename，实际是 %q", collision))
	}

	spacePolicy := pick(false, "", fc.SpacePolicy, SpacePolicyFailFile)
	switch spacePolicy {
	case SpacePolicyFailFile, SpacePolicyAbort:
	default:
		return invalid(fmt.Errorf("space_policy 只能是 fail-file 或 abort，实际是 %q", spacePolicy))
	}

	var maxPixels int64
	if fc.MaxPixels != nil {
		maxPixels = *fc.MaxPixels
	}

	logFile := filepath.Join(output, DefaultLogFile)
	if strings.TrimSpace(fc.LogFile) != "" {
		logFile = absCleanFrom(fileBase, fc.LogFile)
	}

	logLevel := pick(false, "", fc.LogLevel, "warn")
	if !logging.ValidLevel(logLevel) {
		return invalid(fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", logLevel))
	}
	logFormat := pick(false, "", fc.LogFormat, "text")
	if logFormat != "text" && logFormat != "json" {
		return invalid(fmt.Errorf("log_format 只能是 text 或 json，实际是 %q", logFormat))
	}

	excludes := make([]string, 0, len(fc.ExcludeDirs))
	for _, d := range fc.ExcludeDirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		excludes = append(excludes, filepath.ToSlash(filepath.Clean(d)))
	}

	return EffectiveConfig{
		Input:       input,
		Output:      output,
		Action:      action,
		Sort:        sortMode,
		Collision:   collision,
		SpacePolicy: spacePolicy,
		MaxPixels:   maxPixels,
		LogFile:     logFile,
		ExcludeDirs: excludes,
		LogLevel:    strings.ToLower(logLevel),
		LogFormat:   logFormat,
		Journal:     fc.Journal,
		ConfigFile:  cfgPath,
	}, nil
}

// pick 实现 CLI > config > 默认 的取值顺序（值统一转小写并去掉首尾空白）。
func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet {
		return strings.ToLower(strings.TrimSpace(cliVal))
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return strings.ToLower(v)
	}
	return def
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。未知字段视为错误，避免拼写错误被静默忽略。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}

	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return FileConfig{}, true, fmt.Errorf("第 %d 行第 %d 列：%w", row, col, err)
		}
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
