package server

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/any-hub/script-hub/internal/transform"
)

// HeaderCacheHit 标记转换结果是否来自缓存。
const HeaderCacheHit = "X-Script-Hub-Cache-Hit"

// TransformHook 在下游 handler 返回后运行转换流水线，相当于 onSend 钩子。
func TransformHook(pipeline *transform.Pipeline) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if isDiagnosticsPath(c.Path()) {
			return nil
		}

		resp := c.Response()
		rc := &transform.RequestContext{
			Path:            c.Path(),
			RequestHeaders:  requestHeaders(c),
			ResponseHeaders: responseHeaders{header: &resp.Header},
			Body:            responseBody(c),
		}

		result, err := pipeline.Process(c.Context(), rc)
		if err != nil {
			return err
		}
		if !result.Replaced {
			return nil
		}

		// SetBodyString 同时会关闭原始 BodyStream。
		resp.SetBodyString(result.Body)
		c.Set(HeaderCacheHit, strconv.FormatBool(result.CacheHit))
		return nil
	}
}

// responseBody 将 fasthttp 响应正文映射为流水线的三种正文形态。
func responseBody(c fiber.Ctx) transform.Body {
	resp := c.Response()
	name := sourceNameFromContext(c)

	if resp.IsBodyStream() {
		return transform.StreamBody(resp.BodyStream(), name)
	}

	raw := resp.Body()
	if len(raw) == 0 {
		if resp.StatusCode() == fiber.StatusNotModified || c.Method() == fiber.MethodHead {
			return transform.TextBody("")
		}
		return transform.NoBody()
	}

	body := transform.TextBody(string(raw))
	body.SourceName = name
	return body
}

func requestHeaders(c fiber.Ctx) http.Header {
	raw := c.GetReqHeaders()
	headers := make(http.Header, len(raw))
	for key, values := range raw {
		for _, value := range values {
			headers.Add(key, value)
		}
	}
	return headers
}

// responseHeaders 让 fasthttp.ResponseHeader 满足 transform.Headers。
type responseHeaders struct {
	header *fasthttp.ResponseHeader
}

func (h responseHeaders) Get(key string) string {
	return string(h.header.Peek(key))
}

func (h responseHeaders) Del(key string) {
	h.header.Del(key)
}
