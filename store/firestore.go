package store

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/klipach/connectsphere/contract"
	"github.com/klipach/connectsphere/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on a Cloud Firestore client.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// watcher ties a snapshot iterator to a cancellable context. Stop
// cancels the context and waits for the pump goroutine, so callbacks
// never fire after Stop returns.
type watcher struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *watcher) Stop() {
	w.cancel()
	<-w.done
}

func (s *FirestoreStore) watchQuery(ctx context.Context, q firestore.Query, onSnapshot func([]*firestore.DocumentSnapshot), onError func(error)) Subscription {
	ctx, cancel := context.WithCancel(ctx)
	w := &watcher{cancel: cancel, done: make(chan struct{})}

	iter := q.Snapshots(ctx)
	go func() {
		defer close(w.done)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				onError(err)
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				onError(err)
				return
			}
			onSnapshot(docs)
		}
	}()
	return w
}

func (s *FirestoreStore) WatchPosts(ctx context.Context, onSnapshot func([]contract.Post), onError func(error)) Subscription {
	logger := log.LoggerFromContext(ctx)
	return s.watchQuery(ctx, s.client.Collection(contract.PostsCollection).Query, func(docs []*firestore.DocumentSnapshot) {
		posts := make([]contract.Post, 0, len(docs))
		for _, doc := range docs {
			var p contract.Post
			if err := doc.DataTo(&p); err != nil {
				logger.Error("skipping undecodable post", slog.String("doc", doc.Ref.ID), slog.String("errorMsg", err.Error()))
				continue
			}
			p.ID = doc.Ref.ID
			posts = append(posts, p)
		}
		onSnapshot(posts)
	}, onError)
}

func (s *FirestoreStore) WatchUsers(ctx context.Context, onSnapshot func([]contract.UserProfile), onError func(error)) Subscription {
	logger := log.LoggerFromContext(ctx)
	return s.watchQuery(ctx, s.client.Collection(contract.UsersCollection).Query, func(docs []*firestore.DocumentSnapshot) {
		users := make([]contract.UserProfile, 0, len(docs))
		for _, doc := range docs {
			var u contract.UserProfile
			if err := doc.DataTo(&u); err != nil {
				logger.Error("skipping undecodable user", slog.String("doc", doc.Ref.ID), slog.String("errorMsg", err.Error()))
				continue
			}
			users = append(users, u)
		}
		onSnapshot(users)
	}, onError)
}

func (s *FirestoreStore) WatchMessages(ctx context.Context, roomID string, onSnapshot func([]contract.ChatMessage), onError func(error)) Subscription {
	logger := log.LoggerFromContext(ctx)
	messages := s.client.Collection(contract.ChatsCollection).Doc(roomID).Collection(contract.MessagesCollection)
	return s.watchQuery(ctx, messages.Query, func(docs []*firestore.DocumentSnapshot) {
		msgs := make([]contract.ChatMessage, 0, len(docs))
		for _, doc := range docs {
			var m contract.ChatMessage
			if err := doc.DataTo(&m); err != nil {
				logger.Error("skipping undecodable message", slog.String("doc", doc.Ref.ID), slog.String("errorMsg", err.Error()))
				continue
			}
			msgs = append(msgs, m)
		}
		onSnapshot(msgs)
	}, onError)
}

func (s *FirestoreStore) WatchProfile(ctx context.Context, uid string, onSnapshot func(*contract.UserProfile), onError func(error)) Subscription {
	ctx, cancel := context.WithCancel(ctx)
	w := &watcher{cancel: cancel, done: make(chan struct{})}

	iter := s.client.Collection(contract.UsersCollection).Doc(uid).Snapshots(ctx)
	go func() {
		defer close(w.done)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				onError(err)
				return
			}
			if !snap.Exists() {
				// mid-signup race: identity exists, profile not yet written
				onSnapshot(nil)
				continue
			}
			var u contract.UserProfile
			if err := snap.DataTo(&u); err != nil {
				onError(err)
				return
			}
			onSnapshot(&u)
		}
	}()
	return w
}

func (s *FirestoreStore) SaveProfile(ctx context.Context, profile contract.UserProfile) error {
	_, err := s.client.Collection(contract.UsersCollection).Doc(profile.UID).Set(ctx, profile)
	return err
}

func (s *FirestoreStore) CreatePost(ctx context.Context, post contract.Post) error {
	_, _, err := s.client.Collection(contract.PostsCollection).Add(ctx, post)
	return err
}

func (s *FirestoreStore) SendMessage(ctx context.Context, roomID string, msg contract.ChatMessage) error {
	messages := s.client.Collection(contract.ChatsCollection).Doc(roomID).Collection(contract.MessagesCollection)
	_, _, err := messages.Add(ctx, msg)
	return err
}
