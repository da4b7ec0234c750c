package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// cliOutput 收集 run 写往 stdout/stderr 的内容。
type cliOutput struct {
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// captureCLIOutput 在测试期间把 CLI 输出重定向到内存，结束后恢复。
func captureCLIOutput(t *testing.T) *cliOutput {
	t.Helper()

	out := &cliOutput{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = out.stdout, out.stderr

	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
	return out
}

// configFixture 返回 internal/config/testdata 下的 TOML 样例，go test 以模块根目录为工作目录。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("internal", "config", "testdata", name))
	if err != nil {
		t.Fatalf("定位配置样例失败: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("配置样例不存在: %v", err)
	}
	return path
}

// writeConfigFile 把内联 TOML 写入临时目录并返回路径。
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(strings.TrimSpace(content)), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return file
}
