package feed

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/klipach/connectsphere/banner"
	"github.com/klipach/connectsphere/contract"
	"github.com/klipach/connectsphere/log"
	"github.com/klipach/connectsphere/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type blockingSummarizer struct {
	calls   chan string
	release chan struct{}
}

func newBlockingSummarizer() *blockingSummarizer {
	return &blockingSummarizer{
		calls:   make(chan string, 8),
		release: make(chan struct{}),
	}
}

func (s *blockingSummarizer) SummarizePost(_ context.Context, content string) string {
	s.calls <- content
	<-s.release
	return "summary of " + content
}

func testUser() *contract.UserProfile {
	return &contract.UserProfile{UID: "uid-1", Name: "Alice", Interests: []string{"coding"}}
}

func newTestViewModel(t *testing.T, ms *store.MockStore, ai Summarizer) *ViewModel {
	t.Helper()
	return New(ms, banner.NewWithTTL(time.Minute), ai)
}

func TestSubscribeSortsDescending(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	ms := &store.MockStore{}
	var deliver func([]contract.Post)
	ms.On("WatchPosts", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			deliver = args.Get(1).(func([]contract.Post))
		}).
		Return(&store.StubSubscription{})

	vm := newTestViewModel(t, ms, nil)
	vm.Subscribe(context.Background())
	require.NotNil(t, deliver, "expected WatchPosts to be opened")

	deliver([]contract.Post{
		{ID: "c", Timestamp: t3},
		{ID: "a", Timestamp: t1},
		{ID: "b", Timestamp: t2},
	})

	posts := vm.Posts()
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{posts[0].ID, posts[1].ID, posts[2].ID},
		"expected posts newest first")
}

func TestPendingTimestampSortsLast(t *testing.T) {
	ms := &store.MockStore{}
	var deliver func([]contract.Post)
	ms.On("WatchPosts", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			deliver = args.Get(1).(func([]contract.Post))
		}).
		Return(&store.StubSubscription{})

	vm := newTestViewModel(t, ms, nil)
	vm.Subscribe(context.Background())

	deliver([]contract.Post{
		{ID: "pending"}, // zero timestamp, not yet acknowledged
		{ID: "old", Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	})

	posts := vm.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, "old", posts[0].ID)
	assert.Equal(t, "pending", posts[1].ID, "expected unacknowledged post to sort last")
}

func TestUnsubscribeStopsListener(t *testing.T) {
	ms := &store.MockStore{}
	sub := &store.StubSubscription{}
	ms.On("WatchPosts", mock.Anything, mock.Anything, mock.Anything).Return(sub)

	vm := newTestViewModel(t, ms, nil)
	vm.Subscribe(context.Background())
	vm.Unsubscribe()

	assert.Equal(t, 1, sub.Stops(), "expected the listener to be released exactly once")
}

func TestResubscribeStopsPreviousListener(t *testing.T) {
	ms := &store.MockStore{}
	first := &store.StubSubscription{}
	second := &store.StubSubscription{}
	ms.On("WatchPosts", mock.Anything, mock.Anything, mock.Anything).Return(first).Once()
	ms.On("WatchPosts", mock.Anything, mock.Anything, mock.Anything).Return(second).Once()

	vm := newTestViewModel(t, ms, nil)
	vm.Subscribe(context.Background())
	vm.Subscribe(context.Background())

	assert.Equal(t, 1, first.Stops(), "expected first listener stopped before the second opens")
	assert.Equal(t, 0, second.Stops())
}

func TestSubmitEmptyDraftIsNoOp(t *testing.T) {
	ms := &store.MockStore{}
	vm := newTestViewModel(t, ms, nil)

	vm.SetDraft("   \n\t ")
	vm.Submit(context.Background(), testUser())

	ms.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
	assert.Equal(t, "   \n\t ", vm.Draft(), "expected draft to be left unchanged")
}

func TestSubmitWithoutUserIsNoOp(t *testing.T) {
	ms := &store.MockStore{}
	vm := newTestViewModel(t, ms, nil)

	vm.SetDraft("hello world")
	vm.Submit(context.Background(), nil)

	ms.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
}

func TestSubmitWritesOnceAndClearsDraft(t *testing.T) {
	ms := &store.MockStore{}
	done := make(chan contract.Post, 1)
	ms.On("CreatePost", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			done <- args.Get(1).(contract.Post)
		}).
		Return(nil)

	vm := newTestViewModel(t, ms, nil)
	vm.SetDraft("hello world")
	vm.Submit(context.Background(), testUser())

	assert.Empty(t, vm.Draft(), "expected draft cleared immediately, before the write completes")

	select {
	case post := <-done:
		assert.Equal(t, "hello world", post.Content)
		assert.Equal(t, "Alice", post.AuthorName)
		assert.Equal(t, "uid-1", post.AuthorUID)
		assert.True(t, post.Timestamp.IsZero(), "timestamp must be server-assigned")
	case <-time.After(time.Second):
		t.Fatal("expected exactly one CreatePost call")
	}

	assert.Eventually(t, func() bool { return !vm.Submitting() }, time.Second, time.Millisecond)
	ms.AssertNumberOfCalls(t, "CreatePost", 1)
	assert.Empty(t, vm.Posts(), "submit must not mutate the local list")
}

func TestSubmitFailureRestoresDraft(t *testing.T) {
	ms := &store.MockStore{}
	ms.On("CreatePost", mock.Anything, mock.Anything).Return(errors.New("permission denied"))

	vm := newTestViewModel(t, ms, nil)
	vm.SetDraft("my post")
	vm.Submit(context.Background(), testUser())

	assert.Eventually(t, func() bool {
		return vm.Draft() == "my post"
	}, time.Second, time.Millisecond, "expected draft restored after a failed write")
	assert.Equal(t, "Failed to create post.", vm.banner.Message())
}

func TestListenerErrorLoggedAndSurfaced(t *testing.T) {
	ms := &store.MockStore{}
	var fail func(error)
	ms.On("WatchPosts", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			fail = args.Get(2).(func(error))
		}).
		Return(&store.StubSubscription{})

	var logBuf bytes.Buffer
	ctx := log.WithLogger(context.Background(), slog.New(log.NewStructuredHandlerTo(&logBuf)))

	vm := newTestViewModel(t, ms, nil)
	vm.Subscribe(ctx)
	require.NotNil(t, fail)

	fail(errors.New("rpc error: code = PermissionDenied"))

	assert.Equal(t, "Could not fetch posts.", vm.banner.Message())
	assert.Contains(t, logBuf.String(), "posts listener failed")
	assert.Contains(t, logBuf.String(), "PermissionDenied", "the underlying error must be logged")
}

func TestSubmitFailureLogged(t *testing.T) {
	ms := &store.MockStore{}
	ms.On("CreatePost", mock.Anything, mock.Anything).Return(errors.New("deadline exceeded"))

	var logBuf bytes.Buffer
	ctx := log.WithLogger(context.Background(), slog.New(log.NewStructuredHandlerTo(&logBuf)))

	vm := newTestViewModel(t, ms, nil)
	vm.SetDraft("my post")
	vm.Submit(ctx, testUser())

	assert.Eventually(t, func() bool {
		return vm.banner.Message() == "Failed to create post."
	}, time.Second, time.Millisecond)
	assert.Contains(t, logBuf.String(), "post write failed")
	assert.Contains(t, logBuf.String(), "deadline exceeded")
}

func TestSummarizeGuardsPerPost(t *testing.T) {
	summarizer := newBlockingSummarizer()
	vm := newTestViewModel(t, &store.MockStore{}, summarizer)

	vm.Summarize(context.Background(), "p1", "post one")
	<-summarizer.calls
	assert.True(t, vm.Summarizing("p1"))

	// second invocation for the same post while in flight: no-op
	vm.Summarize(context.Background(), "p1", "post one")
	select {
	case <-summarizer.calls:
		t.Fatal("expected no second call for the same post while one is pending")
	case <-time.After(50 * time.Millisecond):
	}

	// a different post summarizes concurrently
	vm.Summarize(context.Background(), "p2", "post two")
	select {
	case content := <-summarizer.calls:
		assert.Equal(t, "post two", content)
	case <-time.After(time.Second):
		t.Fatal("expected a concurrent call for a different post")
	}

	close(summarizer.release)
	assert.Eventually(t, func() bool {
		s1, ok1 := vm.Summary("p1")
		s2, ok2 := vm.Summary("p2")
		return ok1 && ok2 && s1 == "summary of post one" && s2 == "summary of post two"
	}, time.Second, time.Millisecond)
	assert.False(t, vm.Summarizing("p1"))
}

func TestSummaryDroppedAfterTeardown(t *testing.T) {
	ms := &store.MockStore{}
	ms.On("WatchPosts", mock.Anything, mock.Anything, mock.Anything).Return(&store.StubSubscription{})

	summarizer := newBlockingSummarizer()
	vm := newTestViewModel(t, ms, summarizer)
	vm.Subscribe(context.Background())

	vm.Summarize(context.Background(), "p1", "post one")
	<-summarizer.calls

	vm.Unsubscribe()
	close(summarizer.release)

	assert.Eventually(t, func() bool { return !vm.Summarizing("p1") }, time.Second, time.Millisecond)
	_, ok := vm.Summary("p1")
	assert.False(t, ok, "expected late summary to be dropped after teardown")
}
