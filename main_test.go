package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/any-hub/script-hub/internal/config"
	"github.com/any-hub/script-hub/internal/logging"
	"github.com/any-hub/script-hub/internal/metrics"
	"github.com/any-hub/script-hub/internal/server"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("SCRIPT_HUB_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsRejectsUnknownFlag(t *testing.T) {
	if _, err := parseCLIFlags([]string{"--bogus"}); err == nil {
		t.Fatalf("未知参数应当报错")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	out := captureCLIOutput(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, out.stderr.String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	out := captureCLIOutput(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
	if !strings.Contains(out.stderr.String(), "Cache.RedisURL") {
		t.Fatalf("错误输出应包含字段路径: %s", out.stderr.String())
	}
}

func TestRunCheckConfigRejectsUnknownEngine(t *testing.T) {
	configPath := writeConfigFile(t, `
StaticRoot = "."

[Transform]
Engine = "babel"
`)
	out := captureCLIOutput(t)
	if code := run(cliOptions{configPath: configPath, checkOnly: true}); code == 0 {
		t.Fatalf("未注册的引擎应返回非零退出码")
	}
	if !strings.Contains(out.stderr.String(), "esbuild") {
		t.Fatalf("错误输出应列出可选引擎: %s", out.stderr.String())
	}
}

func TestBuildPipelineIdentityEngine(t *testing.T) {
	cfg := &config.Config{Transform: config.TransformConfig{Engine: "identity"}}
	if _, err := buildPipeline(cfg, nil, logging.Discard(), metrics.New()); err != nil {
		t.Fatalf("identity 引擎应可用: %v", err)
	}
	cfg.Transform.Engine = "babel"
	if _, err := buildPipeline(cfg, nil, logging.Discard(), metrics.New()); err == nil {
		t.Fatalf("未注册的引擎应报错")
	}
}

func TestRunVersionOutput(t *testing.T) {
	out := captureCLIOutput(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(out.stdout.String(), "script-hub") {
		t.Fatalf("version 输出应包含 script-hub 标识")
	}
}

func TestBuildPipelineFromConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "app.js"), []byte("const answer = 42;\n"), 0o600); err != nil {
		t.Fatalf("写入脚本失败: %v", err)
	}

	configPath := writeConfigFile(t, `
StaticRoot = "`+filepath.ToSlash(root)+`"

[Transform]
CacheSalt = "v1"

[Transform.Options]
Minify = true

[Cache]
Backend = "none"
`)
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	pipeline, err := buildPipeline(cfg, nil, logging.Discard(), metrics.New())
	if err != nil {
		t.Fatalf("构建流水线失败: %v", err)
	}
	app, err := server.NewApp(server.AppOptions{
		Logger:     logging.Discard(),
		Pipeline:   pipeline,
		StaticRoot: cfg.Global.StaticRoot,
	})
	if err != nil {
		t.Fatalf("构建 app 失败: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/app.js", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "const answer=42;\n" {
		t.Fatalf("Minify 选项应透传给转换器，得到 %q", string(body))
	}
	if resp.Header.Get(server.HeaderCacheHit) != "false" {
		t.Fatalf("缓存关闭时不应命中")
	}
}

func TestRunFailsOnUnreachableRedis(t *testing.T) {
	configPath := writeConfigFile(t, `
StaticRoot = "."

[Cache]
Backend = "redis"
RedisURL = "redis://127.0.0.1:1/0"
`)
	out := captureCLIOutput(t)

	code := run(cliOptions{configPath: configPath})
	if code == 0 {
		t.Fatalf("Redis 不可达时应返回非零退出码")
	}
	if !bytes.Contains(out.stderr.Bytes(), []byte("初始化缓存失败")) {
		t.Fatalf("stderr 应说明缓存初始化失败: %s", out.stderr.String())
	}
}
