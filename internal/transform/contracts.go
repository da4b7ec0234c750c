package transform

import (
	"context"
	"net/http"
	"time"
)

// Transformer 负责改写源码；能给出错误码或源码位置时应返回 *Error。
type Transformer interface {
	Transform(ctx context.Context, req Request) (string, error)
}

// TransformerFunc 把普通函数适配为 Transformer。
type TransformerFunc func(ctx context.Context, req Request) (string, error)

// Transform 调用 f 本身。
func (f TransformerFunc) Transform(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// OptionFilename 是流水线每次都会以当前源文件名覆盖的选项键。
const OptionFilename = "filename"

// Request 描述一次转换调用，Options 为配置选项的私有副本并已写入 OptionFilename。
type Request struct {
	Code    string
	Options map[string]any
}

// Filename 返回流水线附加到请求上的源文件名。
func (r Request) Filename() string {
	name, _ := r.Options[OptionFilename].(string)
	return name
}

// Cache 以指纹为键保存转换结果，未命中时 Get 返回 ok=false，淘汰策略由实现决定。
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Headers 是流水线读写的响应头子集，http.Header 即满足该接口。
type Headers interface {
	Get(key string) string
	Del(key string)
}

var _ Headers = http.Header(nil)

// CacheResult 标记单个响应的缓存查询结果。
type CacheResult string

const (
	CacheHit   CacheResult = "hit"
	CacheMiss  CacheResult = "miss"
	CacheSkip  CacheResult = "skip"
	CacheError CacheResult = "error"
)

// Recorder 接收流水线指标，Prometheus 实现见 internal/metrics。
type Recorder interface {
	ObserveCacheLookup(result CacheResult)
	ObserveTransform(elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCacheLookup(CacheResult)       {}
func (nopRecorder) ObserveTransform(time.Duration, error) {}
