package ledger

// Event types
const (
	EventNewBlock = "new_block"
	EventReset    = "reset"
)

// Event is published after a chain change has been persisted.
type Event struct {
	Type  string `json:"type"`
	Block Block  `json:"block"`
}

// Subscribe returns a channel that receives ledger events. Slow subscribers
// miss events rather than delaying writers.
func (l *Ledger) Subscribe() <-chan Event {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	ch := make(chan Event, 16)
	l.subs = append(l.subs, ch)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (l *Ledger) Unsubscribe(ch <-chan Event) {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	for i, sub := range l.subs {
		if sub == ch {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

func (l *Ledger) publish(evt Event) {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- evt:
		default: // don't block on a slow subscriber
		}
	}
}

func (l *Ledger) closeSubscribers() {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	for _, ch := range l.subs {
		close(ch)
	}
	l.subs = nil
}
