package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// memoryStoreItem holds the value and expiration timestamp for a key.
type memoryStoreItem struct {
	value     []byte
	expiresAt int64 // Unix-nano timestamp. 0 for no expiry.
}

// MemoryStore is an in-memory key-value store that is safe for concurrent use.
type MemoryStore struct {
	mu              sync.RWMutex
	data            map[string]memoryStoreItem
	muSubscribers   sync.RWMutex
	subscribers     map[string]map[chan *Message]struct{}
	droppedMessages atomic.Int64
	stopCleanup     chan struct{}
}

// NewMemoryStore creates and returns a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		data:        make(map[string]memoryStoreItem),
		subscribers: make(map[string]map[chan *Message]struct{}),
		stopCleanup: make(chan struct{}),
	}
	// Periodically drop expired items so keys that are never read again
	// do not accumulate.
	go s.cleanupExpiredItems()
	return s
}

// Close cleans up resources.
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)

	s.muSubscribers.Lock()
	for channel := range s.subscribers {
		delete(s.subscribers, channel)
	}
	s.muSubscribers.Unlock()

	return nil
}

// Set stores a key-value pair.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().UnixNano() + ttl.Nanoseconds()
	}

	s.data[key] = memoryStoreItem{
		value:     value,
		expiresAt: expiresAt,
	}
	return nil
}

// Get retrieves a value by its key.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	item, exists := s.data[key]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	if item.expiresAt > 0 && time.Now().UnixNano() > item.expiresAt {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return item.value, nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Exists checks for the presence of a non-expired key.
func (s *MemoryStore) Exists(key string) (bool, error) {
	_, err := s.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetNX stores the value only if the key is absent.
func (s *MemoryStore) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, exists := s.data[key]; exists {
		if item.expiresAt == 0 || time.Now().UnixNano() <= item.expiresAt {
			return false, nil
		}
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().UnixNano() + ttl.Nanoseconds()
	}
	s.data[key] = memoryStoreItem{value: value, expiresAt: expiresAt}
	return true, nil
}

// Publish sends a message to all subscribers of a channel.
// Slow subscribers do not block the publisher; their messages are dropped
// and counted instead.
func (s *MemoryStore) Publish(channel string, message []byte) error {
	s.muSubscribers.RLock()
	defer s.muSubscribers.RUnlock()

	for ch := range s.subscribers[channel] {
		select {
		case ch <- &Message{Channel: channel, Payload: message}:
		default:
			if dropped := s.droppedMessages.Add(1); dropped%100 == 1 {
				logrus.WithField("channel", channel).Warn("MemoryStore: dropping pub/sub messages for slow subscriber")
			}
		}
	}
	return nil
}

// memorySubscription implements Subscription for the memory store.
type memorySubscription struct {
	store   *MemoryStore
	channel string
	ch      chan *Message
	once    sync.Once
}

func (sub *memorySubscription) Channel() <-chan *Message {
	return sub.ch
}

func (sub *memorySubscription) Close() error {
	sub.once.Do(func() {
		sub.store.muSubscribers.Lock()
		if subs, ok := sub.store.subscribers[sub.channel]; ok {
			delete(subs, sub.ch)
			if len(subs) == 0 {
				delete(sub.store.subscribers, sub.channel)
			}
		}
		sub.store.muSubscribers.Unlock()
		close(sub.ch)
	})
	return nil
}

// Subscribe registers a new subscriber for a channel.
func (s *MemoryStore) Subscribe(channel string) (Subscription, error) {
	ch := make(chan *Message, 16)

	s.muSubscribers.Lock()
	if s.subscribers[channel] == nil {
		s.subscribers[channel] = make(map[chan *Message]struct{})
	}
	s.subscribers[channel][ch] = struct{}{}
	s.muSubscribers.Unlock()

	return &memorySubscription{store: s, channel: channel, ch: ch}, nil
}

// Clear removes all keys from the store.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]memoryStoreItem)
	return nil
}

// DroppedMessages returns the number of pub/sub messages dropped so far.
func (s *MemoryStore) DroppedMessages() int64 {
	return s.droppedMessages.Load()
}

func (s *MemoryStore) cleanupExpiredItems() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.performCleanup()
		}
	}
}

func (s *MemoryStore) performCleanup() {
	now := time.Now().UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.data {
		if item.expiresAt > 0 && now > item.expiresAt {
			delete(s.data, key)
		}
	}
}
