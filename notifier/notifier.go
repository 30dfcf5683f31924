// Package notifier implements the coalescing event dispatcher of spec
// §4.8: per-entity queues of added/modified/removed ids, batched and
// delivered on a 1s window, plus a blocking Flush. Grounded on the
// teacher's internal/eventbus/eventbus.go channel-based pub/sub,
// generalized from one-channel-per-subscriber into the spec's
// per-entity-kind batching dispatcher backed by a single goroutine
// instead of digital.vasic.eventbus's external bus type (that module
// isn't part of this build's dependency set; the batching semantics
// spec §4.8 asks for don't map onto a generic pub/sub bus 1:1 anyway).
package notifier

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EntityKind identifies which per-entity queue an event belongs to.
type EntityKind int

const (
	KindMedia EntityKind = iota
	KindAlbum
	KindArtist
	KindGenre
	KindShow
	KindShowEpisode
	KindMovie
	KindPlaylist
	KindMediaGroup
	KindFolder
	KindDevice
	KindLabel
	KindBookmark
	KindThumbnail
	KindSubscription
	numKinds
)

// BatchWindow is the spec §4.8 coalescing window.
const BatchWindow = time.Second

// Callback receives one batch of changes for one entity kind.
type Callback struct {
	OnAdded    func(ids []int64)
	OnModified func(ids []int64)
	OnRemoved  func(ids []int64)
}

type queue struct {
	mu       sync.Mutex
	added    []int64
	modified []int64
	removed  []int64
	due      time.Time
	hasTimer bool
}

// Notifier owns one queue per entity kind plus a single removal queue
// for thumbnail cleanup requests (spec §4.8).
type Notifier struct {
	queues      [numKinds]*queue
	callbacks   [numKinds]Callback
	cleanupMu   sync.Mutex
	cleanupReqs []int64
	onCleanup   func(ids []int64)

	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopped  bool
	stopOnce sync.Once
	flushCh  chan chan struct{}
	doneWG   sync.WaitGroup

	queueDepth   *prometheus.GaugeVec
	deliveredCnt *prometheus.CounterVec
}

// New creates a Notifier and starts its dispatcher goroutine. Callbacks
// for a kind may be registered any time before the corresponding
// queue's batch window fires; Subscribe is safe to call from multiple
// goroutines.
func New(registry prometheus.Registerer) *Notifier {
	n := &Notifier{
		wakeCh:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		flushCh: make(chan chan struct{}),
	}
	for i := range n.queues {
		n.queues[i] = &queue{}
	}
	n.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "medialibrary", Subsystem: "notifier", Name: "queue_depth",
		Help: "Pending (added+modified+removed) events per entity kind.",
	}, []string{"kind"})
	n.deliveredCnt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medialibrary", Subsystem: "notifier", Name: "delivered_total",
		Help: "Events delivered to callbacks, by kind and change type.",
	}, []string{"kind", "change"})
	if registry != nil {
		registry.MustRegister(n.queueDepth, n.deliveredCnt)
	}

	n.doneWG.Add(1)
	go n.run()
	return n
}

// Subscribe registers the callback invoked when kind's batch window
// fires. A kind may have only one subscriber; subsequent calls replace
// it, matching the library's single-callback-per-kind setup surface.
func (n *Notifier) Subscribe(kind EntityKind, cb Callback) {
	n.callbacks[kind] = cb
}

// OnThumbnailCleanup registers the handler for the void-typed removal
// queue thumbnail refcount triggers populate (spec §4.8, §4.5).
func (n *Notifier) OnThumbnailCleanup(fn func(ids []int64)) {
	n.onCleanup = fn
}

func kindName(k EntityKind) string {
	names := [numKinds]string{"media", "album", "artist", "genre", "show", "show_episode",
		"movie", "playlist", "media_group", "folder", "device", "label", "bookmark",
		"thumbnail", "subscription"}
	return names[k]
}

func (n *Notifier) push(kind EntityKind, dst *[]int64, id int64) {
	q := n.queues[kind]
	q.mu.Lock()
	*dst = append(*dst, id)
	needWake := !q.hasTimer
	if needWake {
		q.due = time.Now().Add(BatchWindow)
		q.hasTimer = true
	}
	depth := len(q.added) + len(q.modified) + len(q.removed)
	q.mu.Unlock()

	n.queueDepth.WithLabelValues(kindName(kind)).Set(float64(depth))

	// Producers request a wake-up only when a timeout needs to be
	// installed; an existing scheduled wake-up is guaranteed to fire
	// within the batch window, so it is not refreshed (spec §4.8).
	if needWake {
		select {
		case n.wakeCh <- struct{}{}:
		default:
		}
	}
}

// NotifyAdded enqueues a created entity of kind.
func (n *Notifier) NotifyAdded(kind EntityKind, id int64) {
	n.push(kind, &n.queues[kind].added, id)
}

// NotifyModified enqueues an updated entity of kind.
func (n *Notifier) NotifyModified(kind EntityKind, id int64) {
	n.push(kind, &n.queues[kind].modified, id)
}

// NotifyRemoved enqueues a deleted entity of kind.
func (n *Notifier) NotifyRemoved(kind EntityKind, id int64) {
	n.push(kind, &n.queues[kind].removed, id)
}

// NotifyThumbnailCleanup enqueues a deferred file-deletion request
// (spec §4.8, §5 "owned by the database row... deferred cleanup
// request").
func (n *Notifier) NotifyThumbnailCleanup(id int64) {
	n.cleanupMu.Lock()
	n.cleanupReqs = append(n.cleanupReqs, id)
	n.cleanupMu.Unlock()
	select {
	case n.wakeCh <- struct{}{}:
	default:
	}
}

func (n *Notifier) run() {
	defer n.doneWG.Done()
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		select {
		case <-n.stopCh:
			n.deliverDue(true)
			return
		case <-n.wakeCh:
			n.rearm(timer)
		case <-timer.C:
			n.deliverDue(false)
			n.rearm(timer)
		case done := <-n.flushCh:
			n.deliverDue(true)
			close(done)
		}
	}
}

func (n *Notifier) rearm(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	next := n.nextDue()
	if next <= 0 {
		next = time.Hour
	}
	timer.Reset(next)
}

func (n *Notifier) nextDue() time.Duration {
	var soonest time.Duration = -1
	now := time.Now()
	for i := range n.queues {
		q := n.queues[i]
		q.mu.Lock()
		if q.hasTimer {
			d := q.due.Sub(now)
			if soonest < 0 || d < soonest {
				soonest = d
			}
		}
		q.mu.Unlock()
	}
	return soonest
}

// deliverDue walks every queue and, for any that is due (or force is
// set for flush/shutdown), swaps it with a scratch copy and delivers
// added/modified/removed as up to three separate callback invocations.
func (n *Notifier) deliverDue(force bool) {
	now := time.Now()
	for i := range n.queues {
		kind := EntityKind(i)
		q := n.queues[i]
		q.mu.Lock()
		due := force || (q.hasTimer && !now.Before(q.due))
		if !due {
			q.mu.Unlock()
			continue
		}
		added, modified, removed := q.added, q.modified, q.removed
		q.added, q.modified, q.removed = nil, nil, nil
		q.hasTimer = false
		q.mu.Unlock()

		n.queueDepth.WithLabelValues(kindName(kind)).Set(0)
		cb := n.callbacks[kind]
		if len(added) > 0 && cb.OnAdded != nil {
			cb.OnAdded(added)
			n.deliveredCnt.WithLabelValues(kindName(kind), "added").Add(float64(len(added)))
		}
		if len(modified) > 0 && cb.OnModified != nil {
			cb.OnModified(modified)
			n.deliveredCnt.WithLabelValues(kindName(kind), "modified").Add(float64(len(modified)))
		}
		if len(removed) > 0 && cb.OnRemoved != nil {
			cb.OnRemoved(removed)
			n.deliveredCnt.WithLabelValues(kindName(kind), "removed").Add(float64(len(removed)))
		}
	}

	n.cleanupMu.Lock()
	cleanup := n.cleanupReqs
	n.cleanupReqs = nil
	n.cleanupMu.Unlock()
	if len(cleanup) > 0 && n.onCleanup != nil {
		n.onCleanup(cleanup)
	}
}

// Flush forces the batch window to zero and blocks the caller until
// every pending event has been delivered, per spec §4.8.
func (n *Notifier) Flush() {
	done := make(chan struct{})
	select {
	case n.flushCh <- done:
		<-done
	case <-n.stopCh:
	}
}

// Close stops the dispatcher goroutine, delivering any pending events
// first, and waits for it to exit.
func (n *Notifier) Close() {
	n.stopOnce.Do(func() { close(n.stopCh) })
	n.doneWG.Wait()
}
