package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/steam"
)

// runningGame tracks one game observed in the process table.
type runningGame struct {
	id      int
	info    *models.GameInfo
	watcher *fsnotify.Watcher
	dirty   bool
}

// WatcherService polls the process table for Steam game launches and exits,
// fans lifetime events out to subscribers and backs a game up automatically
// when it stops. While a game runs its save roots are watched so unchanged
// exits can skip the backup attempt outright.
type WatcherService struct {
	snapshots *SnapshotService
	layout    *steam.Layout
	interval  time.Duration

	// scan lists the app IDs currently running. Swappable so tests can
	// drive the lifecycle without real processes.
	scan func(context.Context) (map[int]struct{}, error)

	mu      sync.Mutex
	subs    map[chan models.LifetimeEvent]struct{}
	running map[int]*runningGame
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcherService creates a WatcherService polling at the given interval.
func NewWatcherService(snapshots *SnapshotService, layout *steam.Layout, interval time.Duration) *WatcherService {
	return &WatcherService{
		snapshots: snapshots,
		layout:    layout,
		interval:  interval,
		scan:      steam.RunningAppIDs,
		subs:      map[chan models.LifetimeEvent]struct{}{},
		running:   map[int]*runningGame{},
	}
}

// Start launches the polling loop. Call Stop to shut it down.
func (w *WatcherService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx)
}

// Stop halts the polling loop and releases all filesystem watches.
func (w *WatcherService) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *WatcherService) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			for _, g := range w.running {
				if g.watcher != nil {
					_ = g.watcher.Close()
				}
			}
			w.running = map[int]*runningGame{}
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *WatcherService) poll(ctx context.Context) {
	ids, err := w.scan(ctx)
	if err != nil {
		log.Printf("[Watcher] process scan failed: %v", err)
		return
	}

	var started []int
	var stopped []*runningGame

	w.mu.Lock()
	for id := range ids {
		if _, ok := w.running[id]; !ok {
			started = append(started, id)
		}
	}
	for id, g := range w.running {
		if _, ok := ids[id]; !ok {
			stopped = append(stopped, g)
			delete(w.running, id)
		}
	}
	w.mu.Unlock()

	for _, id := range started {
		w.onGameStarted(id)
	}
	for _, g := range stopped {
		w.onGameStopped(g)
	}
}

func (w *WatcherService) onGameStarted(id int) {
	log.Printf("[Watcher] game %d started", id)

	g := &runningGame{id: id}
	gi, err := w.layout.GameInfoByID(id)
	if err != nil {
		log.Printf("[Watcher] cannot resolve game %d: %v", id, err)
	} else {
		g.info = gi
		g.watcher = w.watchSaveRoots(gi)
	}
	// without save-root watching we cannot prove the exit was clean of
	// changes, so assume dirty and let the backup's own unchanged check
	// decide
	if g.watcher == nil {
		g.dirty = true
	}

	w.mu.Lock()
	w.running[id] = g
	w.mu.Unlock()

	w.publish(models.LifetimeEvent{AppID: id, Running: true})
}

func (w *WatcherService) onGameStopped(g *runningGame) {
	id := g.id
	log.Printf("[Watcher] game %d stopped", id)

	if g.watcher != nil {
		_ = g.watcher.Close()
	}
	w.publish(models.LifetimeEvent{AppID: id, Running: false})

	if g.info == nil {
		return
	}
	if !g.dirty {
		log.Printf("[Watcher] no save writes seen for %d, skipping exit backup", id)
		return
	}

	// the automatic backup the panel used to trigger on game exit;
	// failures are logged, never surfaced
	si, ok, err := w.snapshots.DoBackup(g.info, false, false)
	switch {
	case err != nil:
		log.Printf("[Watcher] exit backup for %d failed: %v", id, err)
	case !ok:
		log.Printf("[Watcher] exit backup for %d not needed", id)
	default:
		log.Printf("[Watcher] exit backup for %d recorded as %s", id, si.Filename)
	}
}

// watchSaveRoots starts an fsnotify watcher over the game's save roots and
// marks the game dirty on any write. Returns nil when discovery or watch
// setup fails.
func (w *WatcherService) watchSaveRoots(gi *models.GameInfo) *fsnotify.Watcher {
	roots, err := w.snapshots.DiscoverRoots(gi)
	if err != nil {
		log.Printf("[Watcher] no save roots for %d: %v", gi.GameID, err)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[Watcher] fsnotify unavailable: %v", err)
		return nil
	}
	added := 0
	for _, r := range roots {
		if err := watcher.Add(r); err != nil {
			log.Printf("[Watcher] cannot watch %s: %v", r, err)
			continue
		}
		added++
	}
	if added == 0 {
		_ = watcher.Close()
		return nil
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					w.markDirty(gi.GameID)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Watcher] watch error for %d: %v", gi.GameID, err)
			}
		}
	}()
	return watcher
}

func (w *WatcherService) markDirty(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if g, ok := w.running[id]; ok {
		g.dirty = true
	}
}

// RunningIDs returns the app IDs currently observed as running.
func (w *WatcherService) RunningIDs() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]int, 0, len(w.running))
	for id := range w.running {
		ids = append(ids, id)
	}
	return ids
}

// Subscribe registers a lifetime-event channel. The channel is buffered;
// events a slow subscriber cannot take are dropped rather than blocking the
// watcher.
func (w *WatcherService) Subscribe() chan models.LifetimeEvent {
	ch := make(chan models.LifetimeEvent, 16)
	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered with Subscribe and closes it.
func (w *WatcherService) Unsubscribe(ch chan models.LifetimeEvent) {
	w.mu.Lock()
	if _, ok := w.subs[ch]; ok {
		delete(w.subs, ch)
		close(ch)
	}
	w.mu.Unlock()
}

func (w *WatcherService) publish(ev models.LifetimeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
