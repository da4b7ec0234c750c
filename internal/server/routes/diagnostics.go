package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/any-hub/script-hub/internal/metrics"
	"github.com/any-hub/script-hub/internal/version"
)

// DiagnosticsOptions 控制 /-/ 诊断接口暴露的内容。
type DiagnosticsOptions struct {
	Metrics      *metrics.Recorder
	Engine       string
	CacheBackend string
}

type healthPayload struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Engine       string `json:"engine,omitempty"`
	CacheBackend string `json:"cache_backend,omitempty"`
}

// RegisterDiagnostics 暴露 /-/healthz 与 /-/metrics，供 SRE 探活与采集指标。
func RegisterDiagnostics(app *fiber.App, opts DiagnosticsOptions) {
	if app == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(healthPayload{
			Status:       "ok",
			Version:      version.Full(),
			Engine:       opts.Engine,
			CacheBackend: opts.CacheBackend,
		})
	})

	if opts.Metrics != nil {
		app.Get("/-/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}
}
