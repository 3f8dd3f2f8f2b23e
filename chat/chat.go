// Package chat is the view-model for one pairwise real-time
// conversation.
package chat

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

// IcebreakerModel generates conversation starters from the two
// participants' interest lists, or a human-readable error string.
type IcebreakerModel interface {
	Icebreakers(ctx context.Context, mine, theirs, shared []string) string
}

// ViewModel mirrors one room's message sub-collection. Switching the
// counterpart tears down the old subscription before the new one
// opens, so stale messages from a previous room are never visible.
type ViewModel struct {
	store  store.Store
	banner *banner.Banner
	ai     IcebreakerModel

	mu          sync.Mutex
	me          contract.UserProfile
	target      contract.UserProfile
	roomID      string
	sub         store.Subscription
	closed      bool
	messages    []contract.ChatMessage
	draft       string
	sending     bool
	icebreakers []string
	fetchingIce bool
	onChange    func()
}

func New(s store.Store, b *banner.Banner, ai IcebreakerModel) *ViewModel {
	return &ViewModel{store: s, banner: b, ai: ai}
}

// OnChange installs a callback fired after any state change.
func (vm *ViewModel) OnChange(fn func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.onChange = fn
}

// Start designates target as the chat counterpart and opens the live
// message subscription for the pair's room. Any previous subscription
// is stopped first and the local message list is cleared, so exactly
// one listener is live, scoped to the new room.
func (vm *ViewModel) Start(ctx context.Context, me, target contract.UserProfile) {
	roomID := RoomID(me.UID, target.UID)

	vm.mu.Lock()
	prev := vm.sub
	vm.sub = nil
	vm.closed = false
	vm.me = me
	vm.target = target
	vm.roomID = roomID
	vm.messages = nil
	vm.icebreakers = nil
	fn := vm.onChange
	vm.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	vm.notify(fn)

	sub := vm.store.WatchMessages(ctx, roomID, func(msgs []contract.ChatMessage) {
		vm.applySnapshot(roomID, msgs)
	}, func(err error) {
		log.LoggerFromContext(ctx).Error("messages listener failed",
			slog.String("roomId", roomID),
			slog.String("errorMsg", err.Error()),
		)
		vm.banner.Set("Could not fetch messages.")
	})

	vm.mu.Lock()
	if vm.closed || vm.roomID != roomID {
		vm.mu.Unlock()
		sub.Stop()
		return
	}
	vm.sub = sub
	vm.mu.Unlock()
}

// Stop releases the message listener. Must be called on view teardown.
func (vm *ViewModel) Stop() {
	vm.mu.Lock()
	sub := vm.sub
	vm.sub = nil
	vm.closed = true
	vm.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
}

func (vm *ViewModel) applySnapshot(roomID string, msgs []contract.ChatMessage) {
	sortMessages(msgs)

	vm.mu.Lock()
	if vm.roomID != roomID {
		// delivery from a room we already switched away from
		vm.mu.Unlock()
		return
	}
	vm.messages = msgs
	fn := vm.onChange
	vm.mu.Unlock()

	vm.notify(fn)
}

// sortMessages orders oldest first. A zero timestamp means the server
// has not acknowledged the write yet; it sorts before all real
// timestamps.
func sortMessages(msgs []contract.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// Messages returns the current projection, oldest first.
func (vm *ViewModel) Messages() []contract.ChatMessage {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]contract.ChatMessage, len(vm.messages))
	copy(out, vm.messages)
	return out
}

// RoomID returns the current room identity.
func (vm *ViewModel) RoomID() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.roomID
}

// Counterpart returns the user on the other side of the conversation.
func (vm *ViewModel) Counterpart() contract.UserProfile {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.target
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

// Sending reports whether a message write is in flight.
func (vm *ViewModel) Sending() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.sending
}

// Send appends one message to the room and clears the compose field
// immediately. There is no local echo: the message appears once the
// listener redelivers it. A no-op on a whitespace-only draft or while
// a send is in flight. On write failure the draft is restored.
func (vm *ViewModel) Send(ctx context.Context) {
	vm.mu.Lock()
	text := vm.draft
	roomID := vm.roomID
	senderID := vm.me.UID
	if strings.TrimSpace(text) == "" || roomID == "" || vm.sending {
		vm.mu.Unlock()
		return
	}
	vm.sending = true
	vm.draft = ""
	fn := vm.onChange
	vm.mu.Unlock()

	vm.notify(fn)

	msg := contract.ChatMessage{Text: text, SenderID: senderID}

	go func() {
		err := vm.store.SendMessage(ctx, roomID, msg)

		vm.mu.Lock()
		vm.sending = false
		if err != nil && !vm.closed {
			vm.draft = text
		}
		fn := vm.onChange
		vm.mu.Unlock()

		if err != nil {
			log.LoggerFromContext(ctx).Error("message write failed",
				slog.String("roomId", roomID),
				slog.String("errorMsg", err.Error()),
			)
			vm.banner.Set("Failed to send message.")
		}
		vm.notify(fn)
	}()
}

// FetchIcebreakers asks the model for conversation starters based on
// both participants' interests and their intersection. A second
// invocation while one is in flight is a no-op.
func (vm *ViewModel) FetchIcebreakers(ctx context.Context) {
	vm.mu.Lock()
	if vm.fetchingIce {
		vm.mu.Unlock()
		return
	}
	vm.fetchingIce = true
	mine := vm.me.Interests
	theirs := vm.target.Interests
	fn := vm.onChange
	vm.mu.Unlock()

	vm.notify(fn)

	go func() {
		response := vm.ai.Icebreakers(ctx, mine, theirs, SharedInterests(mine, theirs))
		lines := ParseIcebreakers(response)

		vm.mu.Lock()
		vm.fetchingIce = false
		if !vm.closed {
			vm.icebreakers = lines
		}
		fn := vm.onChange
		vm.mu.Unlock()

		vm.notify(fn)
	}()
}

// FetchingIcebreakers reports whether an icebreaker call is in flight.
func (vm *ViewModel) FetchingIcebreakers() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.fetchingIce
}

// Icebreakers returns the current candidate lines, nil when dismissed.
func (vm *ViewModel) Icebreakers() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]string, len(vm.icebreakers))
	copy(out, vm.icebreakers)
	return out
}

// SelectIcebreaker seeds the compose field with candidate i, stripped
// of its numbering prefix, and dismisses the candidate list.
func (vm *ViewModel) SelectIcebreaker(i int) {
	vm.mu.Lock()
	if i < 0 || i >= len(vm.icebreakers) {
		vm.mu.Unlock()
		return
	}
	vm.draft = StripNumberPrefix(vm.icebreakers[i])
	vm.icebreakers = nil
	fn := vm.onChange
	vm.mu.Unlock()

	vm.notify(fn)
}

// DismissIcebreakers clears the candidate list without selecting.
func (vm *ViewModel) DismissIcebreakers() {
	vm.mu.Lock()
	vm.icebreakers = nil
	fn := vm.onChange
	vm.mu.Unlock()

	vm.notify(fn)
}

func (vm *ViewModel) notify(fn func()) {
	if fn != nil {
		fn()
	}
}
