// Package store is the Firestore data layer. Each Watch method opens a
// live snapshot listener that pushes the full decoded result set to the
// caller on every change, until the returned Subscription is stopped.
// Consumers replace their local state wholesale on every delivery; no
// merging is done anywhere.
package store

import (
	"context"

	"github.com/klipach/connectsphere/contract"
)

// Subscription is a live listener. Stop cancels the listener and waits
// for its delivery goroutine to exit; after Stop returns no further
// callbacks are invoked.
type Subscription interface {
	Stop()
}

// Store is the set of reads and writes the client performs. All
// filtering and sorting happens client-side; the queries are
// whole-collection.
type Store interface {
	// WatchPosts streams the full posts collection.
	WatchPosts(ctx context.Context, onSnapshot func([]contract.Post), onError func(error)) Subscription
	// WatchUsers streams the full users collection.
	WatchUsers(ctx context.Context, onSnapshot func([]contract.UserProfile), onError func(error)) Subscription
	// WatchMessages streams one chat room's message sub-collection.
	WatchMessages(ctx context.Context, roomID string, onSnapshot func([]contract.ChatMessage), onError func(error)) Subscription
	// WatchProfile streams a single user document. The callback
	// receives nil while the document does not exist.
	WatchProfile(ctx context.Context, uid string, onSnapshot func(*contract.UserProfile), onError func(error)) Subscription

	// SaveProfile performs the keyed upsert of users/{uid} at signup.
	SaveProfile(ctx context.Context, profile contract.UserProfile) error
	// CreatePost appends one post with a server-assigned timestamp.
	CreatePost(ctx context.Context, post contract.Post) error
	// SendMessage appends one message to the room's sub-collection.
	SendMessage(ctx context.Context, roomID string, msg contract.ChatMessage) error
}
