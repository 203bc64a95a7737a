// Package pager implements the fixed-slot page cache described in spec
// §4.1: a write-through cache over a flat file, bounded by TableMaxPages,
// with no eviction and no free list. It also owns the single-writer file
// lock (spec §5) and a content-hash flush skip (spec §4.7).
package pager

import (
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"bptreedb/internal/node"
)

const (
	// PageSize is the fixed width of every page, on disk and in the buffer array.
	PageSize = node.PageSize

	// TableMaxPages bounds how many page slots the pager will ever hold.
	// There is no eviction and no free list: spec §4.1 is explicit that
	// this is a trivial write-through cache, not an LRU.
	TableMaxPages = 100
)

// Sentinel errors, matching the fatal conditions enumerated in spec §7.
var (
	ErrPageOutOfBounds = errors.New("pager: page number out of bounds")
	ErrEmptySlot       = errors.New("pager: flush of empty page slot")
	ErrCorruptFile     = errors.New("pager: file length is not a multiple of page size")
	ErrAlreadyLocked   = errors.New("pager: database file is locked by another process")
)

// Pager is a fixed-size array of page buffers backed by a single file.
type Pager struct {
	file     *os.File
	fileSize int64
	numPages uint32

	pages    [TableMaxPages][]byte
	digests  [TableMaxPages]uint64
	digestOK [TableMaxPages]bool

	logger *zap.SugaredLogger
}

// Option configures a Pager at construction time.
type Option func(*Pager)

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Pager) { p.logger = l }
}

// Open opens path for read/write, creating it if absent, and takes an
// exclusive advisory lock enforcing the single-writer model (spec §5).
func Open(path string, opts ...Option) (*Pager, error) {
	p := &Pager{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(p)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "pager: open %s", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errors.Wrapf(ErrAlreadyLocked, "%s", path)
		}
		return nil, errors.Wrapf(err, "pager: flock %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, errors.Wrapf(err, "pager: stat %s", path)
	}

	size := info.Size()
	if size%PageSize != 0 {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, errors.Wrapf(ErrCorruptFile, "%s: length %d is not a multiple of %d", path, size, PageSize)
	}

	p.file = f
	p.fileSize = size
	p.numPages = uint32(size / PageSize)

	p.logger.Infow("opened table file",
		"path", path,
		"pages", p.numPages,
		"size", humanize.Bytes(uint64(size)),
	)

	return p, nil
}

// GetPage returns the buffer for page n, loading it from disk on first
// access and growing numPages if n had never been touched before.
func (p *Pager) GetPage(n uint32) ([]byte, error) {
	if n >= TableMaxPages {
		return nil, errors.Wrapf(ErrPageOutOfBounds, "get_page(%d) >= TableMaxPages(%d)", n, TableMaxPages)
	}

	if p.pages[n] == nil {
		buf := make([]byte, PageSize)
		if n < p.numPages {
			off := int64(n) * PageSize
			if _, err := p.file.ReadAt(buf, off); err != nil {
				return nil, errors.Wrapf(err, "pager: read page %d", n)
			}
			p.digests[n] = xxhash.Sum64(buf)
			p.digestOK[n] = true
		}
		p.pages[n] = buf
	}

	if n >= p.numPages {
		p.numPages = n + 1
	}

	return p.pages[n], nil
}

// Flush writes the buffer at n to disk. It skips the actual WriteAt call
// when the page's content digest is unchanged since the last load or
// flush (spec §4.7) — this never changes what Close ultimately persists,
// only how many syscalls it takes to get there.
func (p *Pager) Flush(n uint32) error {
	if n >= TableMaxPages {
		return errors.Wrapf(ErrPageOutOfBounds, "flush(%d) >= TableMaxPages(%d)", n, TableMaxPages)
	}
	buf := p.pages[n]
	if buf == nil {
		return errors.Wrapf(ErrEmptySlot, "flush(%d)", n)
	}

	digest := xxhash.Sum64(buf)
	if p.digestOK[n] && p.digests[n] == digest {
		return nil
	}

	off := int64(n) * PageSize
	if _, err := p.file.WriteAt(buf, off); err != nil {
		return errors.Wrapf(err, "pager: write page %d", n)
	}
	p.digests[n] = digest
	p.digestOK[n] = true
	return nil
}

// UnusedPageNum returns the next page number that has never been allocated.
// There is no free list: allocation is append-only (spec §4.1).
func (p *Pager) UnusedPageNum() uint32 {
	return p.numPages
}

// NumPages returns the exclusive upper bound of allocated page numbers (spec invariant 5).
func (p *Pager) NumPages() uint32 {
	return p.numPages
}

// Close flushes every non-empty slot, releases the file lock, and closes
// the underlying file. Each buffer is released exactly once.
func (p *Pager) Close() error {
	var firstErr error
	for n := uint32(0); n < p.numPages; n++ {
		if p.pages[n] == nil {
			continue
		}
		if err := p.Flush(n); err != nil && firstErr == nil {
			firstErr = err
		}
		p.pages[n] = nil
	}

	if p.file != nil {
		if err := unix.Flock(int(p.file.Fd()), unix.LOCK_UN); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "pager: unlock")
		}
		if err := p.file.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "pager: close file")
		}
		p.file = nil
	}

	p.logger.Infow("closed table file", "pages", p.numPages)
	return firstErr
}
