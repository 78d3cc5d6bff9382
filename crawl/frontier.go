package crawl

import (
	"container/heap"
	"net/url"
	"strings"
	"sync"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/bloom"
)

// Frontier sizing for the Bloom pre-check.
const (
	frontierExpectedURLs      = 10000
	frontierFalsePositiveRate = 0.01
)

// Admission is the outcome of offering a discovered link to the Frontier.
type Admission int

// Admission outcomes. Only AdmitCapped and AdmitDisallowed count as skipped
// pages; the other rejections are silent.
const (
	Admitted Admission = iota
	AdmitInvalid
	AdmitOffSite
	AdmitTooDeep
	AdmitDuplicate
	AdmitOutOfScope
	AdmitFiltered
	AdmitCapped
	AdmitDisallowed
)

var admissionNames = map[Admission]string{
	Admitted:        "admitted",
	AdmitInvalid:    "invalid",
	AdmitOffSite:    "off-site",
	AdmitTooDeep:    "too-deep",
	AdmitDuplicate:  "duplicate",
	AdmitOutOfScope: "out-of-scope",
	AdmitFiltered:   "filtered",
	AdmitCapped:     "capped",
	AdmitDisallowed: "disallowed",
}

func (a Admission) String() string {
	return admissionNames[a]
}

// Skipped reports whether the rejection is recorded as a skipped page.
func (a Admission) Skipped() bool {
	return a == AdmitCapped || a == AdmitDisallowed
}

// FrontierOptions configures admission rules.
type FrontierOptions struct {
	RootURL  string
	MaxDepth int

	// MaxPages caps admitted URLs. Zero means no cap.
	MaxPages int

	// ScopeToPath restricts admission to paths under the root URL's path.
	ScopeToPath bool

	Filter *doccrawl.URLFilter

	// Allowed, if set, is consulted last; URLs it rejects are skipped.
	Allowed func(url string) bool
}

// FrontierCounts is a snapshot of the Frontier's bookkeeping.
type FrontierCounts struct {
	Discovered int // links offered, including rejections
	Admitted   int // URLs ever admitted
	Queued     int // admitted, not yet started
	InFlight   int
	Fetched    int
	Failed     int
	Skipped    int
}

// Frontier is the traversal state of one crawl: the visited set, the work
// queue ordered by depth then priority, and the lifecycle of every admitted
// URL. Check-and-insert is atomic. It is safe for concurrent use, though the
// crawl coordinator is its only writer.
type Frontier struct {
	mu sync.Mutex

	opts      FrontierOptions
	rootHost  string
	scopePath string

	seen    *bloom.Filter
	records map[string]*doccrawl.URLRecord
	aliases map[string]string // redirect target key -> key of the page that reached it
	skipped map[string]struct{}
	queue   *recordHeap
	seq     int

	counts FrontierCounts
}

// NewFrontier creates a Frontier for the given root URL.
// Returns EINVALID if the root URL is not an absolute http(s) URL.
func NewFrontier(opts FrontierOptions) (*Frontier, error) {
	rootKey, err := doccrawl.NormalizeURL(opts.RootURL)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(rootKey)

	h := &recordHeap{}
	heap.Init(h)
	return &Frontier{
		opts:      opts,
		rootHost:  u.Host,
		scopePath: u.Path,
		seen:      bloom.NewFilter(frontierExpectedURLs, frontierFalsePositiveRate),
		records:   make(map[string]*doccrawl.URLRecord),
		aliases:   make(map[string]string),
		skipped:   make(map[string]struct{}),
		queue:     h,
	}, nil
}

// Seed admits the root URL at depth 0. The root bypasses the scope, filter,
// cap and robots rules; it can only be rejected as a duplicate.
func (f *Frontier) Seed() Admission {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counts.Discovered++
	key, _ := doccrawl.NormalizeURL(f.opts.RootURL)
	clean, _ := doccrawl.CleanURL(f.opts.RootURL)
	if f.visited(key) {
		return AdmitDuplicate
	}
	f.admit(key, clean, 0, doccrawl.PriorityTOC, "")
	return Admitted
}

// Offer submits a link discovered on parent at the given depth.
func (f *Frontier) Offer(link doccrawl.DiscoveredLink, depth int, parent string) Admission {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counts.Discovered++

	key, err := doccrawl.NormalizeURL(link.URL)
	if err != nil {
		return AdmitInvalid
	}
	clean, err := doccrawl.CleanURL(link.URL)
	if err != nil {
		return AdmitInvalid
	}
	u, _ := url.Parse(key)
	if u.Host != f.rootHost {
		return AdmitOffSite
	}
	if depth > f.opts.MaxDepth {
		return AdmitTooDeep
	}
	if f.visited(key) {
		return AdmitDuplicate
	}
	if _, ok := f.skipped[key]; ok {
		return AdmitDuplicate
	}
	if f.opts.ScopeToPath && !inScope(u.Path, f.scopePath) {
		return AdmitOutOfScope
	}
	if !f.opts.Filter.Match(clean) {
		return AdmitFiltered
	}
	if f.opts.Allowed != nil && !f.opts.Allowed(clean) {
		f.skip(key)
		return AdmitDisallowed
	}
	if f.opts.MaxPages > 0 && f.counts.Admitted >= f.opts.MaxPages {
		f.skip(key)
		return AdmitCapped
	}

	f.admit(key, clean, depth, link.Priority, parent)
	return Admitted
}

// Alias marks the redirect target of the page with key owner as visited
// without queuing it, so the target is not fetched again. If the target
// already belongs to another admitted or aliased page, Alias records nothing
// and returns that page's key with true: the owner's content is a duplicate.
// A failed target does not claim its content.
func (f *Frontier) Alias(target, owner string) (string, bool) {
	key, err := doccrawl.NormalizeURL(target)
	if err != nil || key == owner {
		return "", false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if rec := f.records[key]; rec != nil && rec.Status != doccrawl.StatusFailed {
		return key, true
	}
	if prev, ok := f.aliases[key]; ok && prev != owner {
		return prev, true
	}
	f.aliases[key] = owner
	f.seen.Add(key)
	if _, ok := f.records[key]; !ok {
		f.records[key] = nil
	}
	return "", false
}

// Next pops the next admitted URL and moves it to Fetching.
// The bool result is false if nothing is queued.
func (f *Frontier) Next() (doccrawl.URLRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return doccrawl.URLRecord{}, false
	}
	rec, _ := heap.Pop(f.queue).(*doccrawl.URLRecord)
	rec.Status = doccrawl.StatusFetching
	f.counts.Queued--
	f.counts.InFlight++
	return *rec, true
}

// Finish moves a Fetching URL to its terminal status.
// It returns false if the URL is unknown or not in flight.
func (f *Frontier) Finish(key string, status doccrawl.URLStatus) bool {
	if !status.Terminal() {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rec := f.records[key]
	if rec == nil || rec.Status != doccrawl.StatusFetching {
		return false
	}
	rec.Status = status
	f.counts.InFlight--
	switch status {
	case doccrawl.StatusFetched:
		f.counts.Fetched++
	case doccrawl.StatusSkipped:
		f.counts.Skipped++
	default:
		f.counts.Failed++
	}
	return true
}

// Abandon moves a Fetching URL back out of the run without a fetch outcome
// and counts it as skipped. It is used when a run is aborted before the
// fetch started.
func (f *Frontier) Abandon(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := f.records[key]
	if rec == nil || rec.Status != doccrawl.StatusFetching {
		return
	}
	rec.Status = doccrawl.StatusFailed
	f.counts.InFlight--
	f.counts.Skipped++
}

// Drain removes every queued URL, counts them as skipped and returns them.
func (f *Frontier) Drain() []doccrawl.URLRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []doccrawl.URLRecord
	for f.queue.Len() > 0 {
		rec, _ := heap.Pop(f.queue).(*doccrawl.URLRecord)
		out = append(out, *rec)
	}
	f.counts.Skipped += len(out)
	f.counts.Queued = 0
	return out
}

// Record returns a copy of the record for a normalized key.
func (f *Frontier) Record(key string) (doccrawl.URLRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := f.records[key]
	if rec == nil {
		return doccrawl.URLRecord{}, false
	}
	return *rec, true
}

// Visited reports whether the URL has been admitted or aliased.
func (f *Frontier) Visited(rawURL string) bool {
	key, err := doccrawl.NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited(key)
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Counts returns a snapshot of the Frontier's bookkeeping.
func (f *Frontier) Counts() FrontierCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts
}

func (f *Frontier) visited(key string) bool {
	if !f.seen.MaybeContains(key) {
		return false
	}
	_, ok := f.records[key]
	return ok
}

func (f *Frontier) admit(key, clean string, depth int, priority doccrawl.LinkPriority, parent string) {
	rec := &doccrawl.URLRecord{
		Key:      key,
		URL:      clean,
		Depth:    depth,
		Priority: priority,
		Parent:   parent,
		Status:   doccrawl.StatusAdmitted,
	}
	f.seen.Add(key)
	f.records[key] = rec
	f.seq++
	heap.Push(f.queue, heapItem{rec: rec, seq: f.seq})
	f.counts.Admitted++
	f.counts.Queued++
}

func (f *Frontier) skip(key string) {
	f.skipped[key] = struct{}{}
	f.counts.Skipped++
}

func inScope(path, scope string) bool {
	if scope == "" || scope == "/" {
		return true
	}
	return path == scope || strings.HasPrefix(path, scope+"/")
}

type heapItem struct {
	rec *doccrawl.URLRecord
	seq int
}

// recordHeap orders admitted URLs by depth ascending, then priority
// descending, then admission order.
type recordHeap []heapItem

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.rec.Depth != b.rec.Depth {
		return a.rec.Depth < b.rec.Depth
	}
	if a.rec.Priority != b.rec.Priority {
		return a.rec.Priority > b.rec.Priority
	}
	return a.seq < b.seq
}

func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x any) {
	item, _ := x.(heapItem)
	*h = append(*h, item)
}

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x.rec
}
