package transform

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/script-hub/internal/logging"
)

const tracerName = "script-hub/transform"

// RequestContext 携带一次被拦截的响应穿过流水线。
type RequestContext struct {
	// Path 仅用于日志。
	Path            string
	RequestHeaders  http.Header
	ResponseHeaders Headers
	Body            Body
}

// Result 是 Process 的结果，Replaced 为 false 时响应应原样发送。
type Result struct {
	Body     string
	Replaced bool
	CacheHit bool
}

// Pipeline 构造后不可变，可并发使用。
type Pipeline struct {
	transformer        Transformer
	matcher            Matcher
	bypassHeader       string
	transformerOptions map[string]any
	maskErrors         bool
	cache              Cache
	salt               string
	coalesce           bool
	fallbackName       string
	logger             *logrus.Logger
	recorder           Recorder

	group singleflight.Group
}

// New 一次性解析 opts 并返回可用的流水线。
func New(transformer Transformer, opts Options) (*Pipeline, error) {
	if transformer == nil {
		return nil, errors.New("transformer is required")
	}

	p := &Pipeline{
		transformer:        transformer,
		matcher:            opts.ContentTypes,
		bypassHeader:       http.CanonicalHeaderKey(opts.BypassHeader),
		transformerOptions: cloneOptions(opts.TransformerOptions),
		maskErrors:         opts.MaskErrors,
		cache:              opts.Cache,
		salt:               hashSalt(opts.CacheSalt),
		coalesce:           opts.Coalesce,
		fallbackName:       opts.FallbackSourceName,
		logger:             opts.Logger,
		recorder:           opts.Recorder,
	}
	if p.matcher == nil {
		p.matcher = defaultMatcher
	}
	if p.bypassHeader == "" {
		p.bypassHeader = DefaultBypassHeader
	}
	if p.fallbackName == "" {
		p.fallbackName = DefaultSourceName()
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	return p, nil
}

// DefaultSourceName 返回 <cwd>/index.js，用于没有源文件名的正文。
func DefaultSourceName() string {
	wd, err := os.Getwd()
	if err != nil {
		return "index.js"
	}
	return filepath.Join(wd, "index.js")
}

// Eligible 判断响应是否需要转换；跳过头只要存在即生效，忽略其取值。
func (p *Pipeline) Eligible(requestHeaders http.Header, contentType string) bool {
	if _, bypass := requestHeaders[p.bypassHeader]; bypass {
		return false
	}
	return p.matcher.MatchString(contentType)
}

// Fingerprint 由校验值与源文件名计算缓存键。
func (p *Pipeline) Fingerprint(validator, sourceName string) string {
	return fingerprint(validator, sourceName, p.salt)
}

// Process 依次执行资格判定、正文读取、缓存查询与转换。
func (p *Pipeline) Process(ctx context.Context, rc *RequestContext) (Result, error) {
	if rc == nil || rc.ResponseHeaders == nil {
		return Result{}, nil
	}
	if !p.Eligible(rc.RequestHeaders, rc.ResponseHeaders.Get("Content-Type")) {
		return Result{}, nil
	}
	if rc.Body.Kind == BodyNone {
		p.logger.WithFields(logging.TransformFields(rc.Path, rc.Body.SourceName, false)).
			Warn("transform_missing_payload")
		return Result{}, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "transform.Process")
	defer span.End()

	payload, err := Materialize(ctx, rc.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "materialize failed")
		return Result{}, err
	}

	rc.ResponseHeaders.Del("Content-Length")
	if payload.Code == "" {
		return Result{Body: "", Replaced: true}, nil
	}

	sourceName := payload.SourceName
	if sourceName == "" {
		sourceName = p.fallbackName
	}
	span.SetAttributes(attribute.String("transform.source", sourceName))

	key := p.cacheKey(rc.ResponseHeaders, payload)
	if key != "" {
		if cached, ok := p.lookup(ctx, key, rc.Path); ok {
			span.SetAttributes(attribute.Bool("transform.cache_hit", true))
			return Result{Body: cached, Replaced: true, CacheHit: true}, nil
		}
	}
	span.SetAttributes(attribute.Bool("transform.cache_hit", false))

	code, err := p.run(ctx, payload.Code, sourceName, key, rc.Path)
	if err != nil {
		span.SetStatus(codes.Error, "transform failed")
		return Result{}, err
	}
	return Result{Body: code, Replaced: true}, nil
}

// cacheKey 在未启用缓存或响应缺少校验头时返回 ""。
func (p *Pipeline) cacheKey(headers Headers, payload Payload) string {
	if p.cache == nil {
		return ""
	}
	validator := headers.Get("ETag")
	if validator == "" {
		validator = headers.Get("Last-Modified")
	}
	if validator == "" {
		p.recorder.ObserveCacheLookup(CacheSkip)
		return ""
	}
	name := payload.SourceName
	if name == "" {
		name = p.fallbackName
	}
	return p.Fingerprint(validator, name)
}

func (p *Pipeline) lookup(ctx context.Context, key, path string) (string, bool) {
	value, ok, err := p.cache.Get(ctx, key)
	switch {
	case err != nil:
		p.recorder.ObserveCacheLookup(CacheError)
		p.logger.WithError(err).
			WithFields(logrus.Fields{"action": "cache_get", "path": path}).
			Warn("cache_get_failed")
		return "", false
	case ok:
		p.recorder.ObserveCacheLookup(CacheHit)
		return value, true
	default:
		p.recorder.ObserveCacheLookup(CacheMiss)
		return "", false
	}
}

func (p *Pipeline) run(ctx context.Context, code, sourceName, key, path string) (string, error) {
	if !p.coalesce || key == "" {
		return p.transform(ctx, code, sourceName, key, path)
	}
	// 合并后的调用脱离首个请求的取消信号，每个调用方只受自己的 ctx 约束。
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		return p.transform(shared, code, sourceName, key, path)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (p *Pipeline) transform(ctx context.Context, code, sourceName, key, path string) (string, error) {
	req := Request{Code: code, Options: p.requestOptions(sourceName)}

	started := time.Now()
	out, err := p.transformer.Transform(ctx, req)
	elapsed := time.Since(started)
	p.recorder.ObserveTransform(elapsed, err)

	fields := logging.TransformFields(path, sourceName, false)
	fields["elapsed_ms"] = elapsed.Milliseconds()
	if err != nil {
		fields["code"] = ErrorCode(err)
		p.logger.WithError(err).WithFields(fields).Warn("transform_failed")
		if p.maskErrors {
			return "", Mask(err)
		}
		return "", err
	}
	p.logger.WithFields(fields).Debug("transform_complete")

	if key != "" {
		if setErr := p.cache.Set(ctx, key, out); setErr != nil {
			p.logger.WithError(setErr).
				WithFields(logrus.Fields{"action": "cache_set", "path": path}).
				Warn("cache_set_failed")
		}
	}
	return out, nil
}

func (p *Pipeline) requestOptions(sourceName string) map[string]any {
	opts := make(map[string]any, len(p.transformerOptions)+1)
	for k, v := range p.transformerOptions {
		opts[k] = v
	}
	opts[OptionFilename] = sourceName
	return opts
}

func cloneOptions(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func hashSalt(salt string) string {
	if salt == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(salt))
	return hex.EncodeToString(sum[:])
}

// fingerprint 以 NUL 分隔依次哈希各段，字节在相邻段间移动也会改变结果。
func fingerprint(parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
