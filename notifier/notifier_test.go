package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFlushDeliversPendingBatches(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := New(nil)
	defer n.Close()

	var mu sync.Mutex
	var added, modified, removed []int64
	n.Subscribe(KindMedia, Callback{
		OnAdded:    func(ids []int64) { mu.Lock(); added = append(added, ids...); mu.Unlock() },
		OnModified: func(ids []int64) { mu.Lock(); modified = append(modified, ids...); mu.Unlock() },
		OnRemoved:  func(ids []int64) { mu.Lock(); removed = append(removed, ids...); mu.Unlock() },
	})

	n.NotifyAdded(KindMedia, 1)
	n.NotifyAdded(KindMedia, 2)
	n.NotifyModified(KindMedia, 1)
	n.NotifyRemoved(KindMedia, 3)
	n.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2}, added)
	assert.Equal(t, []int64{1}, modified)
	assert.Equal(t, []int64{3}, removed)
}

func TestBatchesCoalesceWithinWindow(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := New(nil)
	defer n.Close()

	var mu sync.Mutex
	var batches [][]int64
	n.Subscribe(KindAlbum, Callback{
		OnAdded: func(ids []int64) {
			mu.Lock()
			batch := make([]int64, len(ids))
			copy(batch, ids)
			batches = append(batches, batch)
			mu.Unlock()
		},
	})

	// All three land within one window and must arrive as one batch.
	n.NotifyAdded(KindAlbum, 10)
	n.NotifyAdded(KindAlbum, 11)
	n.NotifyAdded(KindAlbum, 12)
	n.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.Equal(t, []int64{10, 11, 12}, batches[0])
}

func TestKindsAreIndependent(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := New(nil)
	defer n.Close()

	var mu sync.Mutex
	got := map[EntityKind][]int64{}
	for _, kind := range []EntityKind{KindMedia, KindArtist} {
		k := kind
		n.Subscribe(k, Callback{OnAdded: func(ids []int64) {
			mu.Lock()
			got[k] = append(got[k], ids...)
			mu.Unlock()
		}})
	}

	n.NotifyAdded(KindMedia, 1)
	n.NotifyAdded(KindArtist, 2)
	n.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1}, got[KindMedia])
	assert.Equal(t, []int64{2}, got[KindArtist])
}

func TestThumbnailCleanupQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := New(nil)
	defer n.Close()

	var mu sync.Mutex
	var cleaned []int64
	n.OnThumbnailCleanup(func(ids []int64) {
		mu.Lock()
		cleaned = append(cleaned, ids...)
		mu.Unlock()
	})

	n.NotifyThumbnailCleanup(7)
	n.NotifyThumbnailCleanup(8)
	n.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{7, 8}, cleaned)
}

func TestCloseDeliversAndJoins(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := New(nil)

	delivered := make(chan []int64, 1)
	n.Subscribe(KindGenre, Callback{OnAdded: func(ids []int64) { delivered <- ids }})
	n.NotifyAdded(KindGenre, 5)
	n.Close()

	select {
	case ids := <-delivered:
		assert.Equal(t, []int64{5}, ids)
	case <-time.After(time.Second):
		t.Fatal("pending batch not delivered on Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := New(nil)
	n.Close()
	n.Close()
}
