// Package session owns the authenticated identity, the current user's
// profile document, and top-level view routing.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/klipach/connectsphere/auth"
	"github.com/klipach/connectsphere/banner"
	"github.com/klipach/connectsphere/contract"
	"github.com/klipach/connectsphere/log"
	"github.com/klipach/connectsphere/store"
)

const minPasswordLength = 6

// Authenticator is the slice of the identity provider this controller
// consumes.
type Authenticator interface {
	CreateAccount(ctx context.Context, email, password string) (*auth.Identity, error)
	Authenticate(ctx context.Context, email, password string) (*auth.Identity, error)
	SignOut()
	OnSessionChange(fn func(*auth.Identity))
}

// View is the logged-out surface selection.
type View int

const (
	ViewLanding View = iota
	ViewCredentials
	ViewPublicInfo
)

// Page is the authenticated surface selection.
type Page int

const (
	PageFeed Page = iota
	PageDiscover
	PageChat
	PageAbout
)

// SignupForm carries the credential-form fields for account creation.
type SignupForm struct {
	Name      string
	Age       int
	Interests string
	Email     string
	Password  string
}

// Controller subscribes once to the identity provider's session-change
// stream. While an identity is present it keeps exactly one live
// subscription to that identity's profile document; a new session
// event tears the previous subscription down before opening the next.
type Controller struct {
	auth   Authenticator
	store  store.Store
	banner *banner.Banner

	mu         sync.Mutex
	ctx        context.Context
	identity   *auth.Identity
	profile    *contract.UserProfile
	profileSub store.Subscription
	resolving  bool
	busy       bool
	view       View
	page       Page
	chatTarget *contract.UserProfile
	onChange   func()
}

func New(a Authenticator, s store.Store, b *banner.Banner) *Controller {
	return &Controller{auth: a, store: s, banner: b, view: ViewLanding, page: PageFeed}
}

// Run registers the session listener for the process lifetime. ctx is
// the base context for all profile subscriptions.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.auth.OnSessionChange(c.handleSession)
}

// OnChange installs a callback fired after any state change.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Controller) handleSession(identity *auth.Identity) {
	c.mu.Lock()
	prev := c.profileSub
	c.profileSub = nil
	c.identity = identity
	c.profile = nil
	ctx := c.ctx
	if identity == nil {
		c.resolving = false
	} else {
		c.resolving = true
	}
	fn := c.onChange
	c.mu.Unlock()

	// previous subscription goes down before the next opens
	if prev != nil {
		prev.Stop()
	}
	c.notify(fn)

	if identity == nil {
		return
	}

	uid := identity.UID
	sub := c.store.WatchProfile(ctx, uid, func(profile *contract.UserProfile) {
		c.mu.Lock()
		if c.identity == nil || c.identity.UID != uid {
			c.mu.Unlock()
			return
		}
		c.profile = profile
		c.resolving = false
		fn := c.onChange
		c.mu.Unlock()
		c.notify(fn)
	}, func(err error) {
		log.LoggerFromContext(ctx).Error("profile listener failed",
			slog.String("uid", uid),
			slog.String("errorMsg", err.Error()),
		)
		c.mu.Lock()
		c.resolving = false
		fn := c.onChange
		c.mu.Unlock()
		c.banner.Set("Could not load your profile.")
		c.notify(fn)
	})

	c.mu.Lock()
	if c.identity == nil || c.identity.UID != uid {
		c.mu.Unlock()
		sub.Stop()
		return
	}
	c.profileSub = sub
	c.mu.Unlock()
}

// Authenticated reports whether both an identity and a resolved
// profile are present; only then is the authenticated application
// rendered.
func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity != nil && c.profile != nil
}

// Resolving reports whether the profile document is still being
// fetched for a fresh identity.
func (c *Controller) Resolving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolving
}

// Profile returns the current user's profile, nil when absent.
func (c *Controller) Profile() *contract.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Busy reports whether a credential operation is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// SignIn authenticates an existing account. A no-op while another
// credential operation is in flight.
func (c *Controller) SignIn(ctx context.Context, email, password string) {
	if !c.beginCredentialOp() {
		return
	}

	go func() {
		defer c.endCredentialOp()
		if _, err := c.auth.Authenticate(ctx, email, password); err != nil {
			c.banner.Set(err.Error())
			return
		}
		c.banner.Set("Logged in successfully!")
	}()
}

// SignUp validates the form, creates the account, and performs the
// keyed upsert of the profile document. The password policy is
// enforced before any network call.
func (c *Controller) SignUp(ctx context.Context, form SignupForm) {
	if len(form.Password) < minPasswordLength {
		c.banner.Set("Password must be at least 6 characters long.")
		return
	}
	if !c.beginCredentialOp() {
		return
	}

	go func() {
		defer c.endCredentialOp()

		identity, err := c.auth.CreateAccount(ctx, form.Email, form.Password)
		if err != nil {
			c.banner.Set(err.Error())
			return
		}

		profile := contract.UserProfile{
			UID:       identity.UID,
			Name:      form.Name,
			Age:       form.Age,
			Interests: ParseInterests(form.Interests),
			Email:     identity.Email,
		}
		if err := c.store.SaveProfile(ctx, profile); err != nil {
			log.LoggerFromContext(ctx).Error("profile write failed",
				slog.String("uid", identity.UID),
				slog.String("errorMsg", err.Error()),
			)
			c.banner.Set("Failed to save your profile.")
			return
		}
		c.banner.Set("Signup successful! You are now logged in.")
	}()
}

// SignOut drops the session and resets routing to the landing view.
func (c *Controller) SignOut() {
	c.auth.SignOut()

	c.mu.Lock()
	c.view = ViewLanding
	c.page = PageFeed
	c.chatTarget = nil
	fn := c.onChange
	c.mu.Unlock()

	c.banner.Set("Logged out successfully.")
	c.notify(fn)
}

func (c *Controller) beginCredentialOp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Controller) endCredentialOp() {
	c.mu.Lock()
	c.busy = false
	fn := c.onChange
	c.mu.Unlock()
	c.notify(fn)
}

// View returns the logged-out view selection.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SetView switches between the logged-out views.
func (c *Controller) SetView(v View) {
	c.mu.Lock()
	c.view = v
	fn := c.onChange
	c.mu.Unlock()
	c.notify(fn)
}

// Page returns the authenticated page selection.
func (c *Controller) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// SetPage switches between the authenticated pages.
func (c *Controller) SetPage(p Page) {
	c.mu.Lock()
	c.page = p
	fn := c.onChange
	c.mu.Unlock()
	c.notify(fn)
}

// StartChat designates target as the chat counterpart and switches to
// the chat page. Pure navigation; nothing is persisted.
func (c *Controller) StartChat(target contract.UserProfile) {
	c.mu.Lock()
	c.chatTarget = &target
	c.page = PageChat
	fn := c.onChange
	c.mu.Unlock()
	c.notify(fn)
}

// ChatTarget returns the designated chat counterpart, nil if none.
func (c *Controller) ChatTarget() *contract.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatTarget
}

// ParseInterests splits a comma-separated interest string into tags,
// trimming whitespace and dropping empties. Duplicates and case are
// preserved.
func ParseInterests(raw string) []string {
	var interests []string
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			interests = append(interests, tag)
		}
	}
	return interests
}

func (c *Controller) notify(fn func()) {
	if fn != nil {
		fn()
	}
}
