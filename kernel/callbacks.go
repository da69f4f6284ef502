package kernel

import "manuvr-go/message"

// Listener is a call-ahead or call-back hook keyed by message code (spec.md
// §4.4.5). Returning non-zero counts as activity, same convention as
// Receiver.Notify.
type Listener func(*message.Message) int8

// RegisterCallbacks installs ahead and/or back listeners for code. Either
// may be nil. The Kernel owns the registration, not a package-level global,
// per spec.md §9 Design Notes ("No globals for listener maps — make the
// Kernel own them").
func (k *Kernel) RegisterCallbacks(code message.Code, ahead, back Listener) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if ahead != nil {
		k.caListeners[code] = append(k.caListeners[code], ahead)
	}
	if back != nil {
		k.cbListeners[code] = append(k.cbListeners[code], back)
	}
}

func (k *Kernel) runCallAhead(m *message.Message) int8 {
	k.mu.Lock()
	listeners := append([]Listener(nil), k.caListeners[m.Code()]...)
	k.mu.Unlock()
	var activity int8
	for _, l := range listeners {
		if r := l(m); r != 0 {
			activity = 1
		}
	}
	return activity
}

func (k *Kernel) runCallBack(m *message.Message) int8 {
	k.mu.Lock()
	listeners := append([]Listener(nil), k.cbListeners[m.Code()]...)
	k.mu.Unlock()
	var activity int8
	for _, l := range listeners {
		if r := l(m); r != 0 {
			activity = 1
		}
	}
	return activity
}
