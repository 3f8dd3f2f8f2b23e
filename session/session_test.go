package session

import (
	"context"
	"testing"
	"time"

	"github.com/klipach/connectsphere/auth"
	"github.com/klipach/connectsphere/banner"
	"github.com/klipach/connectsphere/contract"
	"github.com/klipach/connectsphere/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeAuth drives session-change events by hand.
type fakeAuth struct {
	mock.Mock
	listener func(*auth.Identity)
}

func (f *fakeAuth) CreateAccount(ctx context.Context, email, password string) (*auth.Identity, error) {
	args := f.Called(ctx, email, password)
	if id, ok := args.Get(0).(*auth.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func (f *fakeAuth) Authenticate(ctx context.Context, email, password string) (*auth.Identity, error) {
	args := f.Called(ctx, email, password)
	if id, ok := args.Get(0).(*auth.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func (f *fakeAuth) SignOut() {
	f.Called()
	if f.listener != nil {
		f.listener(nil)
	}
}

func (f *fakeAuth) OnSessionChange(fn func(*auth.Identity)) {
	f.listener = fn
}

func (f *fakeAuth) emit(id *auth.Identity) {
	f.listener(id)
}

func newTestController(t *testing.T, fa *fakeAuth, ms *store.MockStore) *Controller {
	t.Helper()
	c := New(fa, ms, banner.NewWithTTL(time.Minute))
	c.Run(context.Background())
	require.NotNil(t, fa.listener, "expected controller to register the session listener")
	return c
}

func TestSessionEventOpensProfileSubscription(t *testing.T) {
	fa := &fakeAuth{}
	ms := &store.MockStore{}

	var deliver func(*contract.UserProfile)
	ms.On("WatchProfile", mock.Anything, "uid-1", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			deliver = args.Get(2).(func(*contract.UserProfile))
		}).
		Return(&store.StubSubscription{})

	c := newTestController(t, fa, ms)
	assert.False(t, c.Authenticated())

	fa.emit(&auth.Identity{UID: "uid-1"})
	require.NotNil(t, deliver)
	assert.True(t, c.Resolving(), "expected profile to be resolving after a fresh identity")
	assert.False(t, c.Authenticated(), "identity alone must not authenticate")

	deliver(&contract.UserProfile{UID: "uid-1", Name: "Alice"})
	assert.False(t, c.Resolving())
	assert.True(t, c.Authenticated())
	assert.Equal(t, "Alice", c.Profile().Name)

	// mid-signup race: the document can disappear again
	deliver(nil)
	assert.False(t, c.Authenticated())
}

func TestNewSessionEventTearsDownPreviousSubscription(t *testing.T) {
	fa := &fakeAuth{}
	ms := &store.MockStore{}

	first := &store.StubSubscription{}
	second := &store.StubSubscription{}
	ms.On("WatchProfile", mock.Anything, "uid-1", mock.Anything, mock.Anything).Return(first)
	ms.On("WatchProfile", mock.Anything, "uid-2", mock.Anything, mock.Anything).Return(second)

	c := newTestController(t, fa, ms)

	fa.emit(&auth.Identity{UID: "uid-1"})
	fa.emit(&auth.Identity{UID: "uid-2"})

	assert.Equal(t, 1, first.Stops(), "expected previous profile subscription stopped before the next opens")
	assert.Equal(t, 0, second.Stops())

	fa.emit(nil)
	assert.Equal(t, 1, second.Stops(), "expected subscription released on sign-out")
	assert.False(t, c.Authenticated())
	assert.Nil(t, c.Profile())
}

func TestSignUpRejectsShortPasswordBeforeNetwork(t *testing.T) {
	fa := &fakeAuth{}
	ms := &store.MockStore{}
	c := newTestController(t, fa, ms)

	c.SignUp(context.Background(), SignupForm{Email: "a@b.c", Password: "abc12"})

	fa.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "SaveProfile", mock.Anything, mock.Anything)
	assert.Equal(t, "Password must be at least 6 characters long.", c.banner.Message())
	assert.False(t, c.Busy())
}

func TestSignUpCreatesAccountAndProfile(t *testing.T) {
	fa := &fakeAuth{}
	ms := &store.MockStore{}

	fa.On("CreateAccount", mock.Anything, "alice@example.com", "abc123").
		Return(&auth.Identity{UID: "uid-1", Email: "alice@example.com"}, nil)

	saved := make(chan contract.UserProfile, 1)
	ms.On("SaveProfile", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			saved <- args.Get(1).(contract.UserProfile)
		}).
		Return(nil)

	c := newTestController(t, fa, ms)
	c.SignUp(context.Background(), SignupForm{
		Name:      "Alice",
		Age:       30,
		Interests: "coding, music,  ,coding",
		Email:     "alice@example.com",
		Password:  "abc123",
	})

	select {
	case profile := <-saved:
		assert.Equal(t, "uid-1", profile.UID, "profile key must equal the auth identity id")
		assert.Equal(t, "Alice", profile.Name)
		assert.Equal(t, 30, profile.Age)
		assert.Equal(t, []string{"coding", "music", "coding"}, profile.Interests,
			"duplicates are permitted, blanks dropped")
		assert.Equal(t, "alice@example.com", profile.Email)
	case <-time.After(time.Second):
		t.Fatal("expected the profile upsert")
	}

	assert.Eventually(t, func() bool { return !c.Busy() }, time.Second, time.Millisecond)
	assert.Equal(t, "Signup successful! You are now logged in.", c.banner.Message())
}

func TestSignInSurfacesCredentialErrorVerbatim(t *testing.T) {
	fa := &fakeAuth{}
	ms := &store.MockStore{}

	fa.On("Authenticate", mock.Anything, "alice@example.com", "wrong1").
		Return(nil, &auth.APIError{Code: "INVALID_PASSWORD", Message: "Wrong password."})

	c := newTestController(t, fa, ms)
	c.SignIn(context.Background(), "alice@example.com", "wrong1")

	assert.Eventually(t, func() bool {
		return c.banner.Message() == "Wrong password."
	}, time.Second, time.Millisecond)
}

func TestSignInBusyGuard(t *testing.T) {
	fa := &fakeAuth{}
	ms := &store.MockStore{}

	release := make(chan struct{})
	fa.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&auth.Identity{UID: "uid-1"}, nil)

	c := newTestController(t, fa, ms)
	c.SignIn(context.Background(), "a@b.c", "abc123")

	assert.Eventually(t, func() bool { return c.Busy() }, time.Second, time.Millisecond)
	c.SignIn(context.Background(), "a@b.c", "abc123") // duplicate interaction

	close(release)
	assert.Eventually(t, func() bool { return !c.Busy() }, time.Second, time.Millisecond)
	fa.AssertNumberOfCalls(t, "Authenticate", 1)
}

func TestSignOutResetsRouting(t *testing.T) {
	fa := &fakeAuth{}
	ms := &store.MockStore{}
	fa.On("SignOut").Return()

	c := newTestController(t, fa, ms)
	c.SetView(ViewPublicInfo)
	c.StartChat(contract.UserProfile{UID: "bob"})
	require.Equal(t, PageChat, c.Page())
	require.NotNil(t, c.ChatTarget())

	c.SignOut()

	assert.Equal(t, ViewLanding, c.View(), "expected landing view after logout")
	assert.Equal(t, PageFeed, c.Page())
	assert.Nil(t, c.ChatTarget())
	assert.Equal(t, "Logged out successfully.", c.banner.Message())
}

func TestParseInterests(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "trimmed and split",
			raw:      " coding , music,travel",
			expected: []string{"coding", "music", "travel"},
		},
		{
			name:     "empty string",
			raw:      "",
			expected: nil,
		},
		{
			name:     "case preserved",
			raw:      "Coding,coding",
			expected: []string{"Coding", "coding"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseInterests(tt.raw))
		})
	}
}
