package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// BodyKind 标记响应正文的产生方式，决定 Materialize 如何读取。
type BodyKind int

const (
	// BodyNone 表示 handler 完全没有写正文。
	BodyNone BodyKind = iota
	// BodyText 为已缓冲的完整正文，可以为空串。
	BodyText
	// BodyStream 为尚未读取的流式正文。
	BodyStream
)

func (k BodyKind) String() string {
	switch k {
	case BodyText:
		return "text"
	case BodyStream:
		return "stream"
	default:
		return "none"
	}
}

// Body 是交给流水线的原始响应正文。
type Body struct {
	Kind   BodyKind
	Text   string
	Stream io.Reader
	// SourceName 为正文对应的源文件名，未知时为空。
	SourceName string
}

// NoBody 返回“未写正文”的占位。
func NoBody() Body {
	return Body{Kind: BodyNone}
}

// TextBody 包装已缓冲的正文。
func TextBody(text string) Body {
	return Body{Kind: BodyText, Text: text}
}

// StreamBody 包装流式正文；name 为空时回退到 reader 的 SourceName() 或 Name()。
func StreamBody(r io.Reader, sourceName string) Body {
	return Body{Kind: BodyStream, Stream: r, SourceName: sourceName}
}

// Payload 是读取完毕的正文。
type Payload struct {
	Code       string
	SourceName string
}

type sourceNamer interface {
	SourceName() string
}

type fileNamer interface {
	Name() string
}

// NamedReader 为 reader 附带源文件名，宿主只传递 reader 时名称也不会丢失。
type NamedReader struct {
	io.Reader
	Filename string
}

// SourceName 返回附带的源文件名。
func (r NamedReader) SourceName() string {
	return r.Filename
}

// WithSourceName 包装 r，使流水线能从流上取回 name。
func WithSourceName(r io.Reader, name string) io.Reader {
	return NamedReader{Reader: r, Filename: name}
}

const readChunkSize = 32 * 1024

// Materialize 把正文拼接为单个字符串：按读取顺序追加分片，每次读取前检查 ctx。
// 流由其持有者关闭，这里不负责。
func Materialize(ctx context.Context, body Body) (Payload, error) {
	switch body.Kind {
	case BodyText:
		return Payload{Code: body.Text, SourceName: body.SourceName}, nil
	case BodyStream:
		code, err := drain(ctx, body.Stream)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Payload{}, ctxErr
			}
			return Payload{}, &Error{
				Code:    CodePayloadRead,
				Message: "read payload failed",
				Err:     fmt.Errorf("%w: %w", ErrPayloadRead, err),
			}
		}
		return Payload{Code: code, SourceName: streamSourceName(body)}, nil
	default:
		return Payload{}, ErrNoPayload
	}
}

func drain(ctx context.Context, r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf.String(), nil
			}
			return "", err
		}
	}
}

func streamSourceName(body Body) string {
	if body.SourceName != "" {
		return body.SourceName
	}
	switch r := body.Stream.(type) {
	case sourceNamer:
		return r.SourceName()
	case fileNamer:
		return r.Name()
	}
	return ""
}
