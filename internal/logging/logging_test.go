package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New 失败：%v", err)
	}

	l.Info("不应输出")
	l.Warn("炸弹图片", "path", "a.png")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("期望只有 1 行日志，实际 %d：%q", len(lines), buf.String())
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("不是合法 JSON：%v", err)
	}
	if m["level"] != "warn" || m["path"] != "a.png" {
		t.Fatalf("字段不符合预期：%v", m)
	}
	if ts, _ := m["time"].(string); !strings.HasSuffix(ts, "Z") {
		t.Fatalf("时间应为 UTC RFC3339：%v", m["time"])
	}
}

func TestNew_TextDefault(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New 失败：%v", err)
	}
	l.Debug("debug 默认不输出")
	l.Info("hello", "n", 1)

	out := buf.String()
	if strings.Contains(out, "debug 默认不输出") || !strings.Contains(out, "msg=hello") || !strings.Contains(out, "level=info") {
		t.Fatalf("text 输出不符合预期：%q", out)
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("未知格式应报错")
	}
}

func TestValidLevel(t *testing.T) {
	for _, ok := range []string{"", "debug", "INFO", " warn ", "error"} {
		if !ValidLevel(ok) {
			t.Fatalf("%q 应合法", ok)
		}
	}
	if ValidLevel("trace") {
		t.Fatalf("trace 不应合法")
	}
}
