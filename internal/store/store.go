// Package store provides a pluggable key-value store with pub/sub,
// backed by memory for single-node deployments or Redis when configured.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("store: key not found")

// Message represents a message received from a subscription.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription represents an active subscription to a channel.
type Subscription interface {
	// Channel returns the Go channel delivering messages. It is closed
	// when the subscription is closed.
	Channel() <-chan *Message
	// Close terminates the subscription and releases its resources.
	Close() error
}

// Store is the interface shared by the memory and Redis backends.
type Store interface {
	// Set stores a key-value pair with an optional TTL (0 means no expiry).
	Set(key string, value []byte, ttl time.Duration) error
	// Get retrieves a value by key, returning ErrNotFound when absent.
	Get(key string) ([]byte, error)
	// Delete removes a key.
	Delete(key string) error
	// Exists reports whether a key is present.
	Exists(key string) (bool, error)
	// SetNX stores the value only if the key does not already exist,
	// reporting whether the write happened.
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	// Publish sends a message to all subscribers of a channel.
	Publish(channel string, message []byte) error
	// Subscribe registers for messages on a channel.
	Subscribe(channel string) (Subscription, error)
	// Clear removes all keys.
	Clear() error
	// Close releases all resources held by the store.
	Close() error
}
