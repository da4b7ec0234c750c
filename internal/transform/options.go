package transform

import (
	"github.com/grafana/regexp"
	"github.com/sirupsen/logrus"
)

// DefaultContentTypes 匹配 javascript 与 ecmascript 类媒体类型。
const DefaultContentTypes = `(?i)(?:java|ecma)script`

// DefaultBypassHeader 出现在请求中时跳过转换。
const DefaultBypassHeader = "X-No-Transform"

// Matcher 根据 Content-Type 判定是否需要转换，grafana/regexp 与标准库的 *regexp.Regexp 均满足。
type Matcher interface {
	MatchString(s string) bool
}

// MatcherFunc 把自定义判定函数适配为 Matcher。
type MatcherFunc func(contentType string) bool

// MatchString 调用 f 本身。
func (f MatcherFunc) MatchString(s string) bool {
	return f(s)
}

var defaultMatcher = regexp.MustCompile(DefaultContentTypes)

// CompileMatcher 编译 Content-Type 正则，空串返回默认匹配器。
func CompileMatcher(expr string) (Matcher, error) {
	if expr == "" {
		return defaultMatcher, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return re, nil
}

// Options 配置 Pipeline。零值会关闭 MaskErrors，调用方应从 DefaultOptions 开始。
type Options struct {
	// ContentTypes 为 nil 时使用 DefaultContentTypes。
	ContentTypes Matcher
	// BypassHeader 为空时使用 DefaultBypassHeader。
	BypassHeader string
	// TransformerOptions 合并进每次转换请求。
	TransformerOptions map[string]any
	// MaskErrors 以脱敏消息替换转换器的错误消息。
	MaskErrors bool
	// Cache 非 nil 时启用指纹缓存。
	Cache Cache
	// CacheSalt 只哈希一次，并参与每个指纹的计算。
	CacheSalt string
	// Coalesce 把同一指纹的并发未命中合并为一次转换。默认关闭，此时允许重复转换，
	// 缓存以最后一次写入为准。
	Coalesce bool
	// FallbackSourceName 用于没有源文件名的正文，为空时取 <cwd>/index.js。
	FallbackSourceName string

	Logger   *logrus.Logger
	Recorder Recorder
}

// DefaultOptions 返回带默认值的配置。
func DefaultOptions() Options {
	return Options{
		ContentTypes: defaultMatcher,
		BypassHeader: DefaultBypassHeader,
		MaskErrors:   true,
	}
}
