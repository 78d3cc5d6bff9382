package rod

import (
	"fmt"
	"sync"

	"github.com/fwojciec/doccrawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultRecycleAfter is the number of pages rendered before the browser
// is replaced with a fresh process.
const DefaultRecycleAfter = 75

// BrowserManager owns a headless Chrome process and replaces it after a
// fixed number of pages. Chrome's memory baseline grows under sustained
// load even when every page is closed.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	mu           sync.Mutex
	browser      *rod.Browser
	launcher     *launcher.Launcher
	pages        int
	recycleAfter int
	inUse        map[*rod.Browser]int
	retired      map[*rod.Browser]*launcher.Launcher
	closed       bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithRecycleAfter sets how many pages are rendered before recycling.
func WithRecycleAfter(n int) ManagerOption {
	return func(bm *BrowserManager) {
		if n > 0 {
			bm.recycleAfter = n
		}
	}
}

// NewBrowserManager launches a headless Chrome browser.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		recycleAfter: DefaultRecycleAfter,
		inUse:        make(map[*rod.Browser]int),
		retired:      make(map[*rod.Browser]*launcher.Launcher),
	}
	for _, opt := range opts {
		opt(bm)
	}

	b, l, err := launch()
	if err != nil {
		return nil, err
	}
	bm.browser, bm.launcher = b, l
	return bm, nil
}

// NewPage opens a blank tab. The returned release func closes the tab and
// must be called exactly once. Browsers retired by recycling are closed
// when their last tab is released.
func (bm *BrowserManager) NewPage() (*rod.Page, func(), error) {
	bm.mu.Lock()
	if bm.closed {
		bm.mu.Unlock()
		return nil, nil, doccrawl.Errorf(doccrawl.EINVALID, "browser manager is closed")
	}
	if bm.pages >= bm.recycleAfter {
		bm.recycle()
	}
	b := bm.browser
	bm.pages++
	bm.inUse[b]++
	bm.mu.Unlock()

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		bm.release(b)
		return nil, nil, fmt.Errorf("opening tab: %w", err)
	}

	var once sync.Once
	return page, func() {
		once.Do(func() {
			_ = page.Close()
			bm.release(b)
		})
	}, nil
}

func (bm *BrowserManager) release(b *rod.Browser) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	bm.inUse[b]--
	if bm.inUse[b] > 0 {
		return
	}
	delete(bm.inUse, b)
	if l, ok := bm.retired[b]; ok {
		delete(bm.retired, b)
		_ = b.Close()
		l.Kill()
	}
}

// Close shuts down every browser process. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil
	}
	bm.closed = true

	for b, l := range bm.retired {
		_ = b.Close()
		l.Kill()
	}
	bm.retired = nil

	err := bm.browser.Close()
	bm.launcher.Kill()
	return err
}

// LauncherPID returns the process ID of the current browser launcher.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.closed {
		return 0
	}
	return bm.launcher.PID()
}

// recycle swaps in a fresh browser. The old one is retired until its open
// tabs are released. If the launch fails the old browser stays in service.
// Must be called with mu held.
func (bm *BrowserManager) recycle() {
	b, l, err := launch()
	if err != nil {
		return
	}
	old, oldLauncher := bm.browser, bm.launcher
	bm.browser, bm.launcher = b, l
	bm.pages = 0

	if bm.inUse[old] == 0 {
		_ = old.Close()
		oldLauncher.Kill()
		return
	}
	bm.retired[old] = oldLauncher
}

// launch starts a browser with flags that keep background tabs responsive.
func launch() (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return b, l, nil
}
