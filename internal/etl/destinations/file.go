package destinations

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/viant/afs"

	"tablemerge/internal/etl"
	"tablemerge/internal/log"
)

// ── File Sinks ─────────────────────────────────────────────
// Local files are written to a temporary sibling created at Open time and
// renamed over the target on Commit. Other afs URLs (mem://, ...) are
// buffered and uploaded on Commit.

var fs = afs.New()

// encoder renders a projection in one file format.
type encoder func(w io.Writer, p *etl.Projection) error

type target interface {
	io.Writer
	commit(ctx context.Context) error
	abort() error
}

func openTarget(ctx context.Context, res etl.Resource) (target, error) {
	if res.IsLocal() {
		return openLocal(res)
	}
	url, err := res.URL()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Raw, err)
	}
	return &remoteTarget{url: url}, nil
}

type localTarget struct {
	f    *os.File
	path string
}

func openLocal(res etl.Resource) (*localTarget, error) {
	path, err := filepath.Abs(res.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Raw, err)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", etl.ErrResourceUnavailable, res.Raw)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Raw, err)
	}
	return &localTarget{f: f, path: path}, nil
}

func (t *localTarget) Write(p []byte) (int, error) { return t.f.Write(p) }

func (t *localTarget) commit(ctx context.Context) error {
	if err := t.f.Sync(); err != nil {
		return err
	}
	if err := t.f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(t.f.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(t.f.Name(), t.path)
}

func (t *localTarget) abort() error {
	t.f.Close()
	if err := os.Remove(t.f.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

type remoteTarget struct {
	url string
	buf bytes.Buffer
}

func (t *remoteTarget) Write(p []byte) (int, error) { return t.buf.Write(p) }

func (t *remoteTarget) commit(ctx context.Context) error {
	return fs.Upload(ctx, t.url, 0o644, bytes.NewReader(t.buf.Bytes()))
}

func (t *remoteTarget) abort() error {
	t.buf.Reset()
	return nil
}

// fileSink is the Sink shared by every file format.
type fileSink struct {
	ctx    context.Context
	res    etl.Resource
	target target
	encode encoder
	opts   etl.WriteOptions
	done   bool
}

func openFileSink(ctx context.Context, res etl.Resource, opts etl.WriteOptions, enc encoder) (*fileSink, error) {
	t, err := openTarget(ctx, res)
	if err != nil {
		return nil, err
	}
	return &fileSink{ctx: ctx, res: res, target: t, encode: enc, opts: opts}, nil
}

func (s *fileSink) Write(ctx context.Context, schema *etl.Schema, records []etl.Record) (int, error) {
	p, err := etl.Project(schema, records, s.opts.ExtraColumns)
	if err != nil {
		return 0, err
	}
	if err := s.encode(s.target, p); err != nil {
		return 0, fmt.Errorf("encode %s: %w", s.res.Name(), err)
	}
	return len(p.Rows), nil
}

func (s *fileSink) Commit() error {
	if s.done {
		return nil
	}
	if err := s.target.commit(s.ctx); err != nil {
		return fmt.Errorf("publish %s: %w", s.res.Name(), err)
	}
	s.done = true
	log.G(s.ctx).WithField("output", s.res.Raw).Debug("output published")
	return nil
}

func (s *fileSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.target.abort()
}
