package mutation

import "sync"

// Op identifies the kind of change a mutation makes.
type Op int

const (
	OpReload Op = iota
	OpCreate
	OpToggle
	OpEdit
	OpDelete
	OpInvalidate
	OpRefresh
)

func (o Op) String() string {
	switch o {
	case OpReload:
		return "reload"
	case OpCreate:
		return "create"
	case OpToggle:
		return "toggle"
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	case OpInvalidate:
		return "invalidate"
	case OpRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Event tells subscribers that a mutation completed and the cache may have
// changed. Readers should take a fresh snapshot rather than patch their view.
type Event struct {
	Op           Op
	TaskID       string // empty for reload, invalidate and failed creates
	CacheVersion uint64
	Err          error // nil on confirmed success
	Discarded    bool  // result dropped because the session changed
}

// bus fans events out to subscribers without blocking the publisher.
// A subscriber that falls behind misses events; the next one it reads still
// tells it to re-read the snapshot.
type bus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func (b *bus) subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]chan Event)
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
