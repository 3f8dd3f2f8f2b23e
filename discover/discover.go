// Package discover is the view-model for interest-based user
// discovery.
package discover

import (
	"context"
	"log/slog"
	"sync"

	"github.com/klipach/connectsphere/banner"
	"github.com/klipach/connectsphere/contract"
	"github.com/klipach/connectsphere/log"
	"github.com/klipach/connectsphere/store"
)

// ViewModel mirrors the users collection verbatim and derives the
// subset sharing at least one interest with the current user.
type ViewModel struct {
	store  store.Store
	banner *banner.Banner

	mu       sync.Mutex
	sub      store.Subscription
	closed   bool
	users    []contract.UserProfile
	loaded   bool
	onChange func()
}

func New(s store.Store, b *banner.Banner) *ViewModel {
	return &ViewModel{store: s, banner: b}
}

// OnChange installs a callback fired after any state change.
func (vm *ViewModel) OnChange(fn func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.onChange = fn
}

// Subscribe opens the live users query, stopping any previous
// subscription first.
func (vm *ViewModel) Subscribe(ctx context.Context) {
	vm.mu.Lock()
	prev := vm.sub
	vm.sub = nil
	vm.closed = false
	vm.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	sub := vm.store.WatchUsers(ctx, vm.applySnapshot, func(err error) {
		log.LoggerFromContext(ctx).Error("users listener failed", slog.String("errorMsg", err.Error()))
		vm.banner.Set("Could not fetch users.")
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

// Unsubscribe releases the listener.
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

func (vm *ViewModel) applySnapshot(users []contract.UserProfile) {
	vm.mu.Lock()
	vm.users = users
	vm.loaded = true
	fn := vm.onChange
	vm.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Loaded reports whether at least one snapshot has been delivered.
func (vm *ViewModel) Loaded() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loaded
}

// Matched returns the users visible to current, per Matches.
func (vm *ViewModel) Matched(current *contract.UserProfile) []contract.UserProfile {
	vm.mu.Lock()
	users := vm.users
	vm.mu.Unlock()
	return Matches(users, current)
}

// Matches derives the visible set: every mirrored user other than the
// current one whose interest list intersects the current user's in at
// least one exact, case-sensitive element. An absent or empty interest
// list on either side yields exclusion.
func Matches(users []contract.UserProfile, current *contract.UserProfile) []contract.UserProfile {
	if current == nil || len(current.Interests) == 0 {
		return nil
	}

	mine := make(map[string]struct{}, len(current.Interests))
	for _, interest := range current.Interests {
		mine[interest] = struct{}{}
	}

	var matched []contract.UserProfile
	for _, user := range users {
		if user.UID == current.UID {
			continue
		}
		for _, interest := range user.Interests {
			if _, ok := mine[interest]; ok {
				matched = append(matched, user)
				break
			}
		}
	}
	return matched
}
