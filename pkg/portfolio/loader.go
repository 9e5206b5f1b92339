package portfolio

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"portfolio-agent-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	logModule = "PORTFOLIO"
	cacheKey  = "context"
)

// relativeDirs are probed, in order, under each search root.
var relativeDirs = []string{"data", filepath.Join("api", "data")}

type Options struct {
	// BaseDir is checked before any probing when set.
	BaseDir string
	// ExecDir and WorkDir are the probing roots. Empty means the
	// executable's directory and the process working directory.
	ExecDir string
	WorkDir string
	// CacheTTL > 0 reuses a loaded Context for that long.
	CacheTTL time.Duration
	// ReadFile defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

type Loader struct {
	opts   Options
	cache  *cache.Cache
	logger logger.ILogger
}

func NewLoader(opts Options, log logger.ILogger) *Loader {
	if opts.ExecDir == "" {
		if exe, err := os.Executable(); err == nil {
			opts.ExecDir = filepath.Dir(exe)
		}
	}
	if opts.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.WorkDir = wd
		}
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	l := &Loader{opts: opts, logger: log}
	if opts.CacheTTL > 0 {
		// One key, so expiry is checked on read and no janitor is needed.
		l.cache = cache.New(opts.CacheTTL, 0)
	}
	return l
}

// Load reads every document. Missing, unreadable or empty files leave the
// field empty. The only error is ctx's.
func (l *Loader) Load(ctx context.Context) (Context, error) {
	ctx, span := otel.Tracer("portfolio-agent-be/portfolio").Start(ctx, "Loader.Load")
	defer span.End()

	if l.cache != nil {
		if v, ok := l.cache.Get(cacheKey); ok {
			span.SetAttributes(attribute.Bool("portfolio.cache_hit", true))
			return v.(Context), nil
		}
	}

	contents := make([]string, len(Documents))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range Documents {
		g.Go(func() error {
			content, err := l.loadDocument(gctx, file)
			if err != nil {
				return err
			}
			contents[i] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Context{}, err
	}

	var pc Context
	for i, file := range Documents {
		pc.set(file, contents[i])
	}

	span.SetAttributes(attribute.Bool("portfolio.has_any_data", !pc.Empty()))
	details := map[string]interface{}{"has_any_data": !pc.Empty()}
	for file, ok := range pc.Present() {
		details[file] = ok
	}
	l.logger.Info(logModule, "Portfolio context loaded", details)
	if pc.Empty() {
		l.logger.Warn(logModule, "No portfolio data files found, answers will not be grounded", map[string]interface{}{
			"base_dir": l.opts.BaseDir,
			"exec_dir": l.opts.ExecDir,
			"work_dir": l.opts.WorkDir,
		})
	}

	if l.cache != nil {
		l.cache.SetDefault(cacheKey, pc)
	}
	return pc, nil
}

func (l *Loader) loadDocument(ctx context.Context, file string) (string, error) {
	paths := l.Candidates(file)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := l.opts.ReadFile(path)
		if err != nil || len(data) == 0 {
			continue
		}
		l.logger.Info(logModule, "Loaded portfolio file", map[string]interface{}{
			"file": file,
			"path": path,
		})
		return string(data), nil
	}

	l.logger.Debug(logModule, "Portfolio file not found", map[string]interface{}{
		"file":        file,
		"tried_paths": paths,
	})
	return "", nil
}

// Candidates returns the ordered, de-duplicated paths tried for file.
func (l *Loader) Candidates(file string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	if l.opts.BaseDir != "" {
		add(filepath.Join(l.opts.BaseDir, file))
	}
	for _, dir := range relativeDirs {
		rel := filepath.Join(dir, file)
		if l.opts.ExecDir != "" {
			add(filepath.Join(l.opts.ExecDir, rel))
			add(filepath.Join(l.opts.ExecDir, "..", rel))
		}
		if l.opts.WorkDir != "" {
			add(filepath.Join(l.opts.WorkDir, rel))
			add(filepath.Join(l.opts.WorkDir, "api", rel))
		}
		add(rel)
	}
	return out
}
