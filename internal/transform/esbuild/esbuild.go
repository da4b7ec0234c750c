// Package esbuild provides the default transform.Transformer, backed by the
// esbuild transform API. Transformer options arrive as the opaque map built by
// the pipeline and are decoded strictly: unknown keys are configuration errors.
package esbuild

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/mitchellh/mapstructure"

	"github.com/any-hub/script-hub/internal/transform"
	"github.com/any-hub/script-hub/internal/transform/engine"
)

// Name is the engine registry key.
const Name = "esbuild"

// CodeParseError is reported for source esbuild could not parse.
const CodeParseError = "TRANSFORM_PARSE_ERROR"

func init() {
	engine.MustRegister(Name, func() transform.Transformer { return New() })
}

// Options is the decoded form of the transformer option map.
type Options struct {
	Filename  string `mapstructure:"filename"`
	Loader    string `mapstructure:"loader"`
	Format    string `mapstructure:"format"`
	Target    string `mapstructure:"target"`
	Minify    bool   `mapstructure:"minify"`
	Sourcemap bool   `mapstructure:"sourcemap"`
	KeepNames bool   `mapstructure:"keepnames"`
}

var loaders = map[string]api.Loader{
	"js":  api.LoaderJS,
	"jsx": api.LoaderJSX,
	"ts":  api.LoaderTS,
	"tsx": api.LoaderTSX,
}

var formats = map[string]api.Format{
	"":     api.FormatDefault,
	"esm":  api.FormatESModule,
	"cjs":  api.FormatCommonJS,
	"iife": api.FormatIIFE,
}

var targets = map[string]api.Target{
	"":       api.ESNext,
	"esnext": api.ESNext,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

// Transformer runs esbuild's single-file transform.
type Transformer struct{}

// New returns an esbuild transformer.
func New() *Transformer {
	return &Transformer{}
}

var _ transform.Transformer = (*Transformer)(nil)

// Transform implements transform.Transformer.
func (t *Transformer) Transform(ctx context.Context, req transform.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	opts, err := DecodeOptions(req.Options)
	if err != nil {
		return "", err
	}
	buildOpts, err := opts.toAPI()
	if err != nil {
		return "", err
	}

	result := api.Transform(req.Code, buildOpts)
	if len(result.Errors) > 0 {
		return "", parseError(result.Errors[0])
	}
	return string(result.Code), nil
}

// DecodeOptions decodes the option map, rejecting keys esbuild does not know.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return opts, err
	}
	if err := decoder.Decode(raw); err != nil {
		return opts, &transform.Error{
			Message: fmt.Sprintf("invalid transform options: %v", err),
			Err:     err,
		}
	}
	return opts, nil
}

func (o Options) toAPI() (api.TransformOptions, error) {
	loaderKey := strings.ToLower(o.Loader)
	if loaderKey == "" {
		loaderKey = loaderFromFilename(o.Filename)
	}
	loader, ok := loaders[loaderKey]
	if !ok {
		return api.TransformOptions{}, optionError("loader", o.Loader)
	}
	format, ok := formats[strings.ToLower(o.Format)]
	if !ok {
		return api.TransformOptions{}, optionError("format", o.Format)
	}
	target, ok := targets[strings.ToLower(o.Target)]
	if !ok {
		return api.TransformOptions{}, optionError("target", o.Target)
	}

	out := api.TransformOptions{
		Loader:            loader,
		Format:            format,
		Target:            target,
		Sourcefile:        o.Filename,
		MinifyWhitespace:  o.Minify,
		MinifyIdentifiers: o.Minify,
		MinifySyntax:      o.Minify,
		KeepNames:         o.KeepNames,
	}
	if o.Sourcemap {
		out.Sourcemap = api.SourceMapInline
	}
	return out, nil
}

func loaderFromFilename(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".ts", ".mts", ".cts":
		return "ts"
	case ".tsx":
		return "tsx"
	case ".jsx":
		return "jsx"
	default:
		return "js"
	}
}

func optionError(field, value string) error {
	return &transform.Error{Message: fmt.Sprintf("invalid transform option %s: %q", field, value)}
}

func parseError(msg api.Message) error {
	te := &transform.Error{Code: CodeParseError, Message: msg.Text}
	if loc := msg.Location; loc != nil {
		te.Location = &transform.Location{Line: loc.Line, Column: loc.Column}
		te.Message = fmt.Sprintf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column, msg.Text)
	}
	return te
}
