package pager

import (
	"os"
	"path/filepath"
	"testing"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func TestOpenEmptyFileHasZeroPages(t *testing.T) {
	p, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if got := p.NumPages(); got != 0 {
		t.Fatalf("NumPages() = %d, want 0", got)
	}
}

func TestGetPageGrowsNumPages(t *testing.T) {
	p, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if _, err := p.GetPage(2); err != nil {
		t.Fatalf("GetPage(2): %v", err)
	}
	if got := p.NumPages(); got != 3 {
		t.Fatalf("NumPages() = %d, want 3", got)
	}
}

func TestGetPageOutOfBounds(t *testing.T) {
	p, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if _, err := p.GetPage(TableMaxPages); err == nil {
		t.Fatal("GetPage(TableMaxPages) did not error")
	}
}

func TestFlushAndReopenPersistsContent(t *testing.T) {
	path := tempDBPath(t)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	page, err := p.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0): %v", err)
	}
	page[0] = 0xAB
	if err := p.Flush(0); err != nil {
		t.Fatalf("Flush(0): %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer p2.Close()

	if got := p2.NumPages(); got != 1 {
		t.Fatalf("NumPages() after reopen = %d, want 1", got)
	}
	reloaded, err := p2.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) after reopen: %v", err)
	}
	if reloaded[0] != 0xAB {
		t.Fatalf("reloaded page[0] = %#x, want 0xAB", reloaded[0])
	}
}

func TestFlushEmptySlotErrors(t *testing.T) {
	p, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if err := p.Flush(5); err == nil {
		t.Fatal("Flush of untouched slot did not error")
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	path := tempDBPath(t)
	if err := os.WriteFile(path, make([]byte, PageSize/2), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("Open on a non-page-aligned file did not error")
	}
}

func TestOpenTwiceFailsSingleWriterLock(t *testing.T) {
	path := tempDBPath(t)

	p1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer p1.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("second concurrent Open did not error")
	}
}

func TestFlushUnchangedPageTwiceSucceeds(t *testing.T) {
	path := tempDBPath(t)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	page, err := p.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0): %v", err)
	}
	page[10] = 0x42
	if err := p.Flush(0); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	// Flushing again with no modification must be a no-op, not an error,
	// whether or not the digest short-circuits the write.
	if err := p.Flush(0); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
}
