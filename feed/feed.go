// Package feed is the view-model for the public post feed.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/klipach/connectsphere/banner"
	"github.com/klipach/connectsphere/contract"
	"github.com/klipach/connectsphere/log"
	"github.com/klipach/connectsphere/store"
)

// Summarizer produces a one-sentence summary of a post, or a
// human-readable error string.
type Summarizer interface {
	SummarizePost(ctx context.Context, content string) string
}

// ViewModel mirrors the posts collection. Every snapshot delivery
// replaces the local list wholesale; a submitted post appears only
// once the listener redelivers it.
type ViewModel struct {
	store  store.Store
	banner *banner.Banner
	ai     Summarizer

	mu          sync.Mutex
	sub         store.Subscription
	closed      bool
	posts       []contract.Post
	draft       string
	submitting  bool
	summaries   map[string]string
	summarizing map[string]bool
	onChange    func()
}

func New(s store.Store, b *banner.Banner, ai Summarizer) *ViewModel {
	return &ViewModel{
		store:       s,
		banner:      b,
		ai:          ai,
		summaries:   make(map[string]string),
		summarizing: make(map[string]bool),
	}
}

// OnChange installs a callback fired after any state change.
func (vm *ViewModel) OnChange(fn func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.onChange = fn
}

// Subscribe opens the live posts query. Any previous subscription is
// stopped first, so at most one listener is ever live.
func (vm *ViewModel) Subscribe(ctx context.Context) {
	vm.mu.Lock()
	prev := vm.sub
	vm.sub = nil
	vm.closed = false
	vm.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	sub := vm.store.WatchPosts(ctx, vm.applySnapshot, func(err error) {
		log.LoggerFromContext(ctx).Error("posts listener failed", slog.String("errorMsg", err.Error()))
		vm.banner.Set("Could not fetch posts.")
	})

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		sub.Stop()
		return
	}
	vm.sub = sub
	vm.mu.Unlock()
}

// Unsubscribe releases the listener. Must be called on view teardown;
// late async results arriving afterwards are dropped.
func (vm *ViewModel) Unsubscribe() {
	vm.mu.Lock()
	sub := vm.sub
	vm.sub = nil
	vm.closed = true
	vm.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
}

func (vm *ViewModel) applySnapshot(posts []contract.Post) {
	sortPosts(posts)

	vm.mu.Lock()
	vm.posts = posts
	fn := vm.onChange
	vm.mu.Unlock()

	vm.notify(fn)
}

// sortPosts orders newest first. A zero timestamp means the server has
// not acknowledged the write yet; it sorts after all real timestamps.
func sortPosts(posts []contract.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp.After(posts[j].Timestamp)
	})
}

// Posts returns the current projection, newest first.
func (vm *ViewModel) Posts() []contract.Post {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]contract.Post, len(vm.posts))
	copy(out, vm.posts)
	return out
}

// SetDraft updates the compose field.
func (vm *ViewModel) SetDraft(text string) {
	vm.mu.Lock()
	vm.draft = text
	vm.mu.Unlock()
}

// Draft returns the compose field contents.
func (vm *ViewModel) Draft() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.draft
}

// Submitting reports whether a post write is in flight.
func (vm *ViewModel) Submitting() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.submitting
}

// Submit appends one post authored by author and clears the compose
// field immediately, without waiting for the server. A no-op when the
// draft trims to empty, no user is signed in, or a submit is already
// in flight. On write failure the draft is restored so the user's text
// is not lost.
func (vm *ViewModel) Submit(ctx context.Context, author *contract.UserProfile) {
	vm.mu.Lock()
	content := vm.draft
	if strings.TrimSpace(content) == "" || author == nil || vm.submitting {
		vm.mu.Unlock()
		return
	}
	vm.submitting = true
	vm.draft = ""
	fn := vm.onChange
	vm.mu.Unlock()

	vm.notify(fn)

	post := contract.Post{
		Content:    content,
		AuthorName: author.Name,
		AuthorUID:  author.UID,
	}

	go func() {
		err := vm.store.CreatePost(ctx, post)

		vm.mu.Lock()
		vm.submitting = false
		if err != nil && !vm.closed {
			vm.draft = content
		}
		fn := vm.onChange
		vm.mu.Unlock()

		if err != nil {
			log.LoggerFromContext(ctx).Error("post write failed", slog.String("errorMsg", err.Error()))
			vm.banner.Set("Failed to create post.")
		}
		vm.notify(fn)
	}()
}

// Summarize asks the model for a one-sentence summary of the post.
// The result is kept locally, keyed by post id. Re-invoking while a
// call for the same post is outstanding is a no-op; different posts
// may be summarized concurrently.
func (vm *ViewModel) Summarize(ctx context.Context, postID, content string) {
	vm.mu.Lock()
	if vm.summarizing[postID] {
		vm.mu.Unlock()
		return
	}
	vm.summarizing[postID] = true
	fn := vm.onChange
	vm.mu.Unlock()

	vm.notify(fn)

	go func() {
		summary := vm.ai.SummarizePost(ctx, content)

		vm.mu.Lock()
		delete(vm.summarizing, postID)
		if !vm.closed {
			vm.summaries[postID] = summary
		}
		fn := vm.onChange
		vm.mu.Unlock()

		vm.notify(fn)
	}()
}

// Summary returns the stored summary for a post, if any.
func (vm *ViewModel) Summary(postID string) (string, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	s, ok := vm.summaries[postID]
	return s, ok
}

// Summarizing reports whether a summary call for the post is in flight.
func (vm *ViewModel) Summarizing(postID string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.summarizing[postID]
}

func (vm *ViewModel) notify(fn func()) {
	if fn != nil {
		fn()
	}
}
