package listfetch

import (
	"context"
	"errors"
	"maps"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/Kyz7/console/internal/apiclient"
	"github.com/Kyz7/console/internal/resource"
	"github.com/Kyz7/console/internal/tablequery"
	"github.com/Kyz7/console/internal/viewstate"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const DefaultDebounce = 400 * time.Millisecond

var ErrStaleResponse = errors.New("listfetch: stale response discarded")

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Slice is the fetched data of one list screen.
type Slice struct {
	Items      []map[string]any         `json:"items"`
	Pagination apiclient.PaginationMeta `json:"pagination"`
	Status     Status                   `json:"status"`
	Error      string                   `json:"error,omitempty"`
	Message    string                   `json:"message,omitempty"`
}

type Lister interface {
	List(ctx context.Context, ts oauth2.TokenSource, path string, query url.Values) (*apiclient.ListPage, error)
}

type Options struct {
	Debounce time.Duration
	Log      *zap.Logger
}

// Orchestrator keeps one list screen's data in step with its view-state store.
// Every issued request gets a sequence number and only the latest one may write.
type Orchestrator struct {
	def    resource.Definition
	store  *viewstate.Store
	client Lister
	log    *zap.Logger

	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	tokens    oauth2.TokenSource
	slice     Slice
	extra     url.Values
	seq       uint64
	pending   int
	idle      chan struct{}
	timer     *time.Timer
	timerDone chan struct{}
	timerGen  uint64
	closed    bool
	resetting bool

	unsubscribe func()
}

func New(def resource.Definition, store *viewstate.Store, client Lister, tokens oauth2.TokenSource, opts Options) *Orchestrator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		def:      def,
		store:    store,
		client:   client,
		log:      opts.Log.With(zap.String("resource", string(def.Name))),
		debounce: opts.Debounce,
		ctx:      ctx,
		cancel:   cancel,
		tokens:   tokens,
		slice:    Slice{Items: []map[string]any{}, Status: StatusIdle},
		extra:    url.Values{},
		idle:     closedChan(),
	}
	o.unsubscribe = store.Subscribe(o.onChange)
	return o
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (o *Orchestrator) Store() *viewstate.Store { return o.store }

func (o *Orchestrator) Definition() resource.Definition { return o.def }

func (o *Orchestrator) SetTokenSource(ts oauth2.TokenSource) {
	o.mu.Lock()
	o.tokens = ts
	o.mu.Unlock()
}

func (o *Orchestrator) Slice() Slice {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.slice
	s.Items = slices.Clone(o.slice.Items)
	return s
}

// Issued returns how many requests have been sent so far.
func (o *Orchestrator) Issued() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seq
}

func (o *Orchestrator) ExtraFilters() url.Values {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneValues(o.extra)
}

func (o *Orchestrator) onChange(prev, next *viewstate.State) {
	o.mu.Lock()
	skip := o.closed || o.resetting
	o.mu.Unlock()
	if skip {
		return
	}

	if next.GlobalFilter != prev.GlobalFilter {
		if next.GlobalFilter != next.DebouncedFilter {
			o.scheduleDebounce(next.GlobalFilter)
		} else {
			o.stopDebounce()
		}
	}

	if prev.Pagination != next.Pagination ||
		prev.DebouncedFilter != next.DebouncedFilter ||
		!tablequery.EqualSorting(prev.Sorting, next.Sorting) {
		o.trigger()
	}
}

func (o *Orchestrator) scheduleDebounce(value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	if o.timer != nil && o.timer.Stop() {
		o.release()
	}
	o.hold()
	o.timerGen++
	gen := o.timerGen
	done := make(chan struct{})
	o.timerDone = done
	o.timer = time.AfterFunc(o.debounce, func() {
		defer close(done)

		// A timer superseded, unmounted or closed after it fired must not write.
		o.mu.Lock()
		current := !o.closed && gen == o.timerGen
		o.mu.Unlock()
		if current {
			o.store.SetDebouncedFilter(value)
		}

		o.mu.Lock()
		o.release()
		o.mu.Unlock()
	})
}

func (o *Orchestrator) stopDebounce() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.haltTimer()
}

// haltTimer stops the debounce timer and invalidates a callback that already
// fired. It returns a channel closed once such a callback has finished, or nil.
// Callers hold o.mu.
func (o *Orchestrator) haltTimer() <-chan struct{} {
	o.timerGen++
	var running <-chan struct{}
	if o.timer != nil {
		if o.timer.Stop() {
			o.release()
		} else {
			running = o.timerDone
		}
	}
	o.timer = nil
	o.timerDone = nil
	return running
}

// hold and release track pending work for Wait. Callers hold o.mu.
func (o *Orchestrator) hold() {
	if o.pending == 0 {
		o.idle = make(chan struct{})
	}
	o.pending++
}

func (o *Orchestrator) release() {
	o.pending--
	if o.pending == 0 {
		close(o.idle)
	}
}

// Mount issues the initial fetch unless the screen already has data or a
// request in flight. A screen whose last load failed fetches again. It reports
// whether a request was issued.
func (o *Orchestrator) Mount() bool {
	o.mu.Lock()
	status := o.slice.Status
	o.mu.Unlock()
	if status == StatusSucceeded || status == StatusLoading {
		return false
	}
	return o.trigger()
}

// Navigate applies a URL to the screen: the extra filters are taken first
// without fetching, then the view is synced. A navigation issues at most one
// request, and one that changes nothing behaves like Mount. It reports whether
// a request was issued.
func (o *Orchestrator) Navigate(view tablequery.View, values url.Values) bool {
	before := o.Issued()

	extraChanged := o.replaceExtra(values)
	if !o.store.SyncFromURL(view) {
		if extraChanged {
			o.trigger()
		} else {
			o.Mount()
		}
	}

	return o.Issued() != before
}

func (o *Orchestrator) Refresh() bool {
	return o.trigger()
}

// SetExtraFilters replaces the resource-specific filters (date range, category)
// and refetches when they differ.
func (o *Orchestrator) SetExtraFilters(values url.Values) bool {
	if !o.replaceExtra(values) {
		return false
	}
	o.trigger()
	return true
}

func (o *Orchestrator) replaceExtra(values url.Values) bool {
	filtered := o.def.ExtraFilters(values)

	o.mu.Lock()
	defer o.mu.Unlock()
	if maps.EqualFunc(filtered, o.extra, slices.Equal[[]string]) {
		return false
	}
	o.extra = filtered
	return true
}

func (o *Orchestrator) trigger() bool {
	st := o.store.Snapshot()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.seq++
	seq := o.seq
	query := tablequery.BuildListQuery(o.extra, st.Pagination.PageIndex, st.Pagination.PageSize,
		st.DebouncedFilter, st.Sorting, o.def.Columns)
	tokens := o.tokens
	o.slice.Status = StatusLoading
	o.hold()
	o.mu.Unlock()

	go o.fetch(seq, st.Pagination, tokens, query)
	return true
}

func (o *Orchestrator) fetch(seq uint64, issued viewstate.Pagination, tokens oauth2.TokenSource, query url.Values) {
	page, err := o.client.List(o.ctx, tokens, o.def.Path, query)
	if applyErr := o.apply(seq, issued, page, err); errors.Is(applyErr, ErrStaleResponse) {
		o.log.Debug("discarded stale list response", zap.Uint64("seq", seq))
	}

	o.mu.Lock()
	o.release()
	o.mu.Unlock()
}

func (o *Orchestrator) apply(seq uint64, issued viewstate.Pagination, page *apiclient.ListPage, err error) error {
	o.mu.Lock()
	if o.closed || seq != o.seq {
		o.mu.Unlock()
		return ErrStaleResponse
	}

	if err != nil {
		o.slice.Status = StatusFailed
		o.slice.Error = apiclient.UserMessage(err)
		o.mu.Unlock()
		o.log.Warn("list fetch failed", zap.Uint64("seq", seq), zap.Error(err))
		return err
	}

	o.slice = Slice{
		Items:      page.Items,
		Pagination: page.Pagination,
		Status:     StatusSucceeded,
		Message:    page.Message,
	}
	o.mu.Unlock()

	o.reconcile(seq, issued, page.Pagination)
	return nil
}

// reconcile aligns the store with the server-reported pagination in a single
// conditional update. It writes only while seq is still the latest request and
// the pagination is still the one the request was built from; anything newer
// belongs to the user.
func (o *Orchestrator) reconcile(seq uint64, issued viewstate.Pagination, meta apiclient.PaginationMeta) {
	o.store.SetPagination(func(p viewstate.Pagination) viewstate.Pagination {
		o.mu.Lock()
		latest := !o.closed && seq == o.seq
		o.mu.Unlock()
		if !latest || p != issued {
			return p
		}

		idx := p.PageIndex
		if meta.Page > 0 {
			idx = meta.Page - 1
		}
		last := max(meta.TotalPages-1, 0)
		p.PageIndex = min(max(idx, 0), last)
		if meta.PerPage > 0 {
			p.PageSize = meta.PerPage
		}
		return p
	})
}

// Wait blocks until no debounce timer or request is pending.
func (o *Orchestrator) Wait(ctx context.Context) error {
	for {
		o.mu.Lock()
		if o.pending == 0 {
			o.mu.Unlock()
			return nil
		}
		idle := o.idle
		o.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Unmount resets the store and the fetched data without disposing the
// orchestrator; in-flight responses are discarded.
func (o *Orchestrator) Unmount() {
	o.mu.Lock()
	o.seq++
	o.resetting = true
	running := o.haltTimer()
	o.slice = Slice{Items: []map[string]any{}, Status: StatusIdle}
	o.extra = url.Values{}
	o.mu.Unlock()

	if running != nil {
		<-running
	}
	o.store.Reset()

	o.mu.Lock()
	o.resetting = false
	o.mu.Unlock()
}

func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.cancel()
	running := o.haltTimer()
	o.mu.Unlock()

	if running != nil {
		<-running
	}
	o.unsubscribe()
	o.store.Reset()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}
	return out
}
