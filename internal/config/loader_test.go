package config

import (
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(testConfigPath(t, "does-not-exist.toml")); err == nil {
		t.Fatalf("不存在的配置文件应当报错")
	}
}

func TestDurationAcceptsSeconds(t *testing.T) {
	path := writeTempConfig(t, `
StaticRoot = "."

[Cache]
Backend = "memory"
TTL = 90
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Cache.TTL.DurationValue() != 90*time.Second {
		t.Fatalf("纯数字 TTL 应视为秒, got %s", cfg.Cache.TTL.DurationValue())
	}
}

func TestLoadNormalizesBackend(t *testing.T) {
	path := writeTempConfig(t, `
[Cache]
Backend = " Memory "
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Fatalf("Backend 应当被规范化, got %q", cfg.Cache.Backend)
	}
	if cfg.Cache.MaxEntries != 1024 {
		t.Fatalf("MaxEntries 默认值缺失")
	}
}

func TestLoadAllowsDisablingMask(t *testing.T) {
	path := writeTempConfig(t, `
[Transform]
MaskErrors = false
Coalesce = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Transform.MaskErrors {
		t.Fatalf("显式关闭的 MaskErrors 不应被默认值覆盖")
	}
	if !cfg.Transform.Coalesce {
		t.Fatalf("Coalesce 应当被解析")
	}
	if cfg.Transform.Options == nil {
		t.Fatalf("Options 应当初始化为空 map")
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("5m")); err != nil || d.DurationValue() != 5*time.Minute {
		t.Fatalf("5m 解析失败: %v %s", err, d.DurationValue())
	}
	if err := d.UnmarshalText([]byte("0x10")); err != nil || d.DurationValue() != 16*time.Second {
		t.Fatalf("十六进制秒解析失败: %v", err)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatalf("非法值应当报错")
	}
}
