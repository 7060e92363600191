package crawler

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestFrontier_BreadthFirstOrder(t *testing.T) {
	f := NewFrontier(3, nil)

	f.Push("https://example.com/deep", 2, "")
	f.Push("https://example.com/", 0, "")
	f.Push("https://example.com/mid", 1, "")

	expected := []int{0, 1, 2}
	for _, depth := range expected {
		entry, ok := f.Pop(time.Second)
		if !ok {
			t.Fatal("Pop returned no entry")
		}
		if entry.Depth != depth {
			t.Errorf("expected depth %d, got %d (%s)", depth, entry.Depth, entry.URL)
		}
		f.TaskDone()
	}
}

func TestFrontier_CarriesSourceURL(t *testing.T) {
	f := NewFrontier(3, nil)

	f.Push("https://example.com/", 0, "")
	f.Push("https://example.com/contact", 1, "https://example.com/")

	seed, ok := f.Pop(time.Second)
	if !ok || seed.SourceURL != "" {
		t.Errorf("seed entry has source %q", seed.SourceURL)
	}
	f.TaskDone()

	child, ok := f.Pop(time.Second)
	if !ok {
		t.Fatal("Pop returned no entry")
	}
	if child.SourceURL != "https://example.com/" {
		t.Errorf("expected discovery page as source, got %q", child.SourceURL)
	}
	f.TaskDone()
}

func TestFrontier_DedupNormalizedURLs(t *testing.T) {
	f := NewFrontier(3, nil)

	if !f.Push("https://Example.COM/page?b=2&a=1", 0, "") {
		t.Fatal("first push rejected")
	}
	// Same URL after normalization: host case, query order, fragment
	if f.Push("https://example.com/page?a=1&b=2#section", 0, "") {
		t.Error("duplicate URL was not deduplicated")
	}

	if f.SeenCount() != 1 {
		t.Errorf("expected 1 seen URL, got %d", f.SeenCount())
	}
}

func TestFrontier_DepthLimit(t *testing.T) {
	f := NewFrontier(2, nil)

	if !f.Push("https://example.com/ok", 2, "") {
		t.Error("push at max depth rejected")
	}
	if f.Push("https://example.com/toodeep", 3, "") {
		t.Error("push beyond max depth accepted")
	}
}

func TestFrontier_AllowedDomains(t *testing.T) {
	f := NewFrontier(3, []string{"example.com"})

	if !f.Push("https://example.com/page", 0, "") {
		t.Error("allowed domain rejected")
	}
	if f.Push("https://other.com/page", 0, "") {
		t.Error("disallowed domain accepted")
	}
}

func TestFrontier_FiltersUncrawlableURLs(t *testing.T) {
	f := NewFrontier(3, nil)

	rejected := []string{
		"ftp://example.com/file",
		"https://example.com/image.png",
		"https://example.com/styles.css",
		"https://example.com/wp-admin/settings",
		"https://example.com/login",
		"not a url at all ://",
		"/relative/path",
	}
	for _, raw := range rejected {
		if f.Push(raw, 0, "") {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}

func TestFrontier_PopTimeout(t *testing.T) {
	f := NewFrontier(3, nil)

	start := time.Now()
	_, ok := f.Pop(50 * time.Millisecond)
	if ok {
		t.Fatal("Pop returned entry from empty frontier")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Pop returned too early: %v", elapsed)
	}
}

func TestFrontier_IsIdle(t *testing.T) {
	f := NewFrontier(3, nil)

	if !f.IsIdle() {
		t.Error("new frontier should be idle")
	}

	f.Push("https://example.com/", 0, "")
	if f.IsIdle() {
		t.Error("frontier with queued entry should not be idle")
	}

	_, ok := f.Pop(time.Second)
	if !ok {
		t.Fatal("Pop failed")
	}
	if f.IsIdle() {
		t.Error("frontier with inflight entry should not be idle")
	}

	f.TaskDone()
	if !f.IsIdle() {
		t.Error("frontier should be idle after TaskDone")
	}
}

func TestFrontier_CloseWakesBlockedPop(t *testing.T) {
	f := NewFrontier(3, nil)

	done := make(chan bool, 1)
	go func() {
		_, ok := f.Pop(10 * time.Second)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	f.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop returned entry after Close on empty frontier")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Close")
	}

	if f.Push("https://example.com/", 0, "") {
		t.Error("Push accepted after Close")
	}
}

func TestFrontier_ConcurrentPushPop(t *testing.T) {
	f := NewFrontier(1, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				f.Push(fmt.Sprintf("https://example.com/p%d-%d", n, j), 0, "")
			}
		}(i)
	}
	wg.Wait()

	popped := 0
	for {
		_, ok := f.Pop(10 * time.Millisecond)
		if !ok {
			break
		}
		popped++
		f.TaskDone()
	}

	if popped != 100 {
		t.Errorf("expected 100 entries, popped %d", popped)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM/Page", "https://example.com/Page"},
		{"https://example.com/page#frag", "https://example.com/page"},
		{"https://example.com/page?z=1&a=2", "https://example.com/page?a=2&z=1"},
	}

	for _, tt := range tests {
		parsed, ok := crawlableURL(tt.in)
		if !ok {
			t.Fatalf("crawlableURL rejected %q", tt.in)
		}
		if got := normalizeURL(parsed); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
