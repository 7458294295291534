package sse

import (
	"context"
	"sync"

	"ms-registration/internal/models"
)

const clientBuffer = 16

// RegistrationFeed fans registration events out to subscribers of one event and to
// subscribers of every event.
type RegistrationFeed struct {
	mu           sync.RWMutex
	eventClients map[string][]chan models.RegistrationEvent
	allClients   []chan models.RegistrationEvent
}

func NewRegistrationFeed() *RegistrationFeed {
	return &RegistrationFeed{
		eventClients: make(map[string][]chan models.RegistrationEvent),
	}
}

// SubscribeToEvent returns a channel receiving the events of eventID. The channel is closed
// once ctx is done.
func (f *RegistrationFeed) SubscribeToEvent(ctx context.Context, eventID string) <-chan models.RegistrationEvent {
	ch := make(chan models.RegistrationEvent, clientBuffer)

	f.mu.Lock()
	f.eventClients[eventID] = append(f.eventClients[eventID], ch)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		f.eventClients[eventID] = remove(f.eventClients[eventID], ch)
		if len(f.eventClients[eventID]) == 0 {
			delete(f.eventClients, eventID)
		}
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

// SubscribeToAll returns a channel receiving the events of every event.
func (f *RegistrationFeed) SubscribeToAll(ctx context.Context) <-chan models.RegistrationEvent {
	ch := make(chan models.RegistrationEvent, clientBuffer)

	f.mu.Lock()
	f.allClients = append(f.allClients, ch)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		f.allClients = remove(f.allClients, ch)
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

// Notify broadcasts ev. Subscribers with a full buffer miss the event instead of slowing
// down the caller.
func (f *RegistrationFeed) Notify(ev models.RegistrationEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.eventClients[ev.EventID] {
		select {
		case ch <- ev:
		default:
		}
	}
	for _, ch := range f.allClients {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers counts the open subscriptions for eventID, including the all-events ones.
func (f *RegistrationFeed) Subscribers(eventID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.eventClients[eventID]) + len(f.allClients)
}

func remove(clients []chan models.RegistrationEvent, ch chan models.RegistrationEvent) []chan models.RegistrationEvent {
	for i, c := range clients {
		if c == ch {
			return append(clients[:i], clients[i+1:]...)
		}
	}
	return clients
}
