package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/script-hub/internal/cache"
	"github.com/any-hub/script-hub/internal/config"
	"github.com/any-hub/script-hub/internal/logging"
	"github.com/any-hub/script-hub/internal/metrics"
	"github.com/any-hub/script-hub/internal/server"
	"github.com/any-hub/script-hub/internal/transform"
	"github.com/any-hub/script-hub/internal/transform/engine"
	"github.com/any-hub/script-hub/internal/version"

	// 注册内置转换引擎
	_ "github.com/any-hub/script-hub/internal/transform/esbuild"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		if _, ok := engine.Fetch(cfg.Transform.Engine); !ok {
			fmt.Fprintf(stdErr, "Transform.Engine: 未注册的转换引擎 %s (可选 %v)\n", cfg.Transform.Engine, engine.Names())
			return 1
		}
		fields["engine"] = cfg.Transform.Engine
		fields["cache_backend"] = cfg.Cache.Backend
		fields["static_root"] = cfg.Global.StaticRoot
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 启动顺序：配置 → 缓存后端 → 转换流水线 → Fiber server，
	// 所有请求共享同一个流水线与缓存实例。
	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存失败: %v\n", err)
		return 1
	}
	if store != nil {
		defer store.Close()
	}

	recorder := metrics.New()
	pipeline, err := buildPipeline(cfg, store, logger, recorder)
	if err != nil {
		fmt.Fprintf(stdErr, "构建转换流水线失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["static_root"] = cfg.Global.StaticRoot
	fields["engine"] = cfg.Transform.Engine
	fields["cache_backend"] = cfg.Cache.Backend
	fields["mask_errors"] = cfg.Transform.MaskErrors
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(ctx, cfg, pipeline, recorder, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildPipeline 将 [Transform] 配置转换为流水线参数，store 为 nil 时关闭缓存。
func buildPipeline(cfg *config.Config, store cache.Store, logger *logrus.Logger, recorder transform.Recorder) (*transform.Pipeline, error) {
	matcher, err := transform.CompileMatcher(cfg.Transform.ContentTypes)
	if err != nil {
		return nil, fmt.Errorf("编译 ContentTypes 失败: %w", err)
	}

	opts := transform.DefaultOptions()
	opts.ContentTypes = matcher
	opts.BypassHeader = cfg.Transform.BypassHeader
	opts.TransformerOptions = cfg.Transform.Options
	opts.MaskErrors = cfg.Transform.MaskErrors
	opts.CacheSalt = cfg.Transform.CacheSalt
	opts.Coalesce = cfg.Transform.Coalesce
	opts.Logger = logger
	opts.Recorder = recorder
	if store != nil {
		opts.Cache = store
	}

	transformer, err := engine.New(cfg.Transform.Engine)
	if err != nil {
		return nil, fmt.Errorf("Transform.Engine 可选值 %v: %w", engine.Names(), err)
	}
	return transform.New(transformer, opts)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet(version.Name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 SCRIPT_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("SCRIPT_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(ctx context.Context, cfg *config.Config, pipeline *transform.Pipeline, recorder *metrics.Recorder, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:       logger,
		Pipeline:     pipeline,
		StaticRoot:   cfg.Global.StaticRoot,
		Metrics:      recorder,
		Engine:       cfg.Transform.Engine,
		CacheBackend: cfg.Cache.Backend,
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		logger.WithFields(logrus.Fields{"action": "shutdown"}).Info("收到退出信号，停止 Fiber 服务")
		_ = app.Shutdown()
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	err = app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
