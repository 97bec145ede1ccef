// Package nsconfig loads the layered policy document (.nsconfig.yml) and
// resolves the fully merged settings of a named job.
package nsconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nsreconcile/internal/validation"
)

// DefaultFilename is probed when no policy path is given, and looked up
// inside a directory when the given path is one.
const DefaultFilename = ".nsconfig.yml"

type options struct {
	knownChecks []string
	logger      *zap.Logger
}

// Option configures Load and Parse.
type Option func(*options)

// WithKnownChecks validates every check id named by a filter against keys.
func WithKnownChecks(keys ...string) Option {
	return func(o *options) {
		o.knownChecks = append(o.knownChecks, keys...)
	}
}

// WithLogger sets the logger used while loading.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.Named("nsconfig")
	return o
}

// Load reads and validates the policy document at path.
//
// An empty path probes DefaultFilename in the working directory; a missing
// default file yields the all-defaults document. A path that is given
// explicitly must exist. When it names a directory, DefaultFilename inside
// it is loaded and must exist too.
func Load(path string, opts ...Option) (*Document, error) {
	o := buildOptions(opts)

	if path == "" {
		if _, err := os.Stat(DefaultFilename); errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("No policy document found, using defaults.", zap.String("filename", DefaultFilename))
			return newDocument(""), nil
		}
		path = DefaultFilename
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, &validation.Error{Kind: validation.KindIO, Msg: fmt.Sprintf("cannot expand policy path %q", path), Err: err}
	}

	info, err := os.Stat(expanded)
	if err != nil {
		return nil, &validation.Error{Kind: validation.KindIO, Msg: fmt.Sprintf("policy path %q not found", path), Err: err}
	}
	if info.IsDir() {
		expanded = filepath.Join(expanded, DefaultFilename)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, &validation.Error{Kind: validation.KindIO, Msg: fmt.Sprintf("cannot read policy document %q", expanded), Err: err}
	}

	doc, err := parse(data, expanded, o)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", expanded, err)
	}
	o.logger.Debug("Loaded policy document.",
		zap.String("path", expanded),
		zap.Strings("configs", doc.Names()),
		zap.Strings("filters", doc.FilterNames()))
	return doc, nil
}

// Parse validates a policy document held in memory.
func Parse(data []byte, opts ...Option) (*Document, error) {
	return parse(data, "", buildOptions(opts))
}
