package server

import (
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/etag"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/script-hub/internal/metrics"
	"github.com/any-hub/script-hub/internal/server/routes"
	"github.com/any-hub/script-hub/internal/transform"
)

// AppOptions controls how the Fiber application is assembled.
type AppOptions struct {
	Logger     *logrus.Logger
	Pipeline   *transform.Pipeline
	StaticRoot string
	// Metrics is optional; nil hides /-/metrics.
	Metrics *metrics.Recorder
	// Engine 与 CacheBackend 仅用于 /-/healthz 展示。
	Engine       string
	CacheBackend string
}

const (
	contextKeyRequestID  = "_scripthub_request_id"
	contextKeySourceName = "_scripthub_source_name"
)

// NewApp builds a Fiber application that serves StaticRoot through the
// transform hook with structured error handling.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Pipeline == nil {
		return nil, errors.New("transform pipeline is required")
	}
	if strings.TrimSpace(opts.StaticRoot) == "" {
		return nil, errors.New("static root is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  newErrorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())
	app.Use(etag.New())
	app.Use(TransformHook(opts.Pipeline))

	routes.RegisterDiagnostics(app, routes.DiagnosticsOptions{
		Metrics:      opts.Metrics,
		Engine:       opts.Engine,
		CacheBackend: opts.CacheBackend,
	})

	root := opts.StaticRoot
	app.Add([]string{fiber.MethodGet, fiber.MethodHead}, "/*", sourceNameMiddleware(root), static.New(root))

	return app, nil
}

// requestContextMiddleware 为每个请求生成请求 ID 并写入响应头。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// sourceNameMiddleware 把请求路径映射为 StaticRoot 下的绝对文件名，供转换器推断 loader。
func sourceNameMiddleware(root string) fiber.Handler {
	return func(c fiber.Ctx) error {
		rel := path.Clean("/" + c.Path())
		SetSourceName(c, filepath.Join(root, filepath.FromSlash(rel)))
		return c.Next()
	}
}

// SetSourceName 记录当前响应正文对应的源文件名，转换钩子会优先使用它。
func SetSourceName(c fiber.Ctx, name string) {
	c.Locals(contextKeySourceName, name)
}

func sourceNameFromContext(c fiber.Ctx) string {
	if value, ok := c.Locals(contextKeySourceName).(string); ok {
		return value
	}
	return ""
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
