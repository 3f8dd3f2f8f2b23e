// Package ui is the interactive terminal surface. It is a thin render
// layer: all state lives in the view-models, and the UI re-renders
// whenever any of them reports a change.
package ui

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/klipach/connectsphere/banner"
	"github.com/klipach/connectsphere/chat"
	"github.com/klipach/connectsphere/discover"
	"github.com/klipach/connectsphere/feed"
	"github.com/klipach/connectsphere/session"
)

//go:embed about.md
var aboutMarkdown []byte

// UI wires the controller and view-models to a line-based terminal.
type UI struct {
	session  *session.Controller
	feed     *feed.ViewModel
	discover *discover.ViewModel
	chat     *chat.ViewModel
	banner   *banner.Banner

	in  *bufio.Scanner
	out io.Writer

	// mu guards the mount flags and the chat echo cursor: the input
	// loop flips the flags on navigation while listener callbacks read
	// them.
	mu              sync.Mutex
	feedMounted     bool
	discoverMounted bool
	chatMounted     bool
	chatPrinted     int
}

func New(s *session.Controller, f *feed.ViewModel, d *discover.ViewModel, c *chat.ViewModel, b *banner.Banner, in io.Reader, out io.Writer) *UI {
	return &UI{
		session:  s,
		feed:     f,
		discover: d,
		chat:     c,
		banner:   b,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

// Run drives the read-render loop until the user quits or input ends.
func (u *UI) Run(ctx context.Context) error {
	// incoming chat messages print as they arrive; everything else
	// re-renders on the next prompt
	u.chat.OnChange(u.echoChat)

	fmt.Fprintln(u.out, "ConnectSphere")
	for {
		u.render(ctx)
		fmt.Fprint(u.out, "> ")
		if !u.in.Scan() {
			u.teardown()
			return u.in.Err()
		}
		line := strings.TrimSpace(u.in.Text())
		if line == "/quit" {
			u.teardown()
			return nil
		}
		if err := u.dispatch(ctx, line); err != nil {
			return err
		}
	}
}

func (u *UI) currentUID() string {
	if p := u.session.Profile(); p != nil {
		return p.UID
	}
	return ""
}

// echoChat prints messages that arrived since the last echo, the
// terminal equivalent of scrolling to the newest entry. It fires on
// every chat state change, so the cursor keeps unchanged transcripts
// from re-printing.
func (u *UI) echoChat() {
	if u.session.Page() != session.PageChat {
		return
	}
	msgs := u.chat.Messages()
	me := u.currentUID()

	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.chatMounted {
		return
	}
	if len(msgs) < u.chatPrinted {
		// the room was switched and the transcript started over
		u.chatPrinted = len(msgs)
		return
	}
	for _, msg := range msgs[u.chatPrinted:] {
		fmt.Fprint(u.out, formatMessage(me, msg))
	}
	u.chatPrinted = len(msgs)
}

func (u *UI) render(ctx context.Context) {
	if msg := u.banner.Message(); msg != "" {
		fmt.Fprintf(u.out, "\n*** %s ***\n", msg)
	}

	if !u.session.Authenticated() {
		u.teardown()
		switch u.session.View() {
		case session.ViewCredentials:
			fmt.Fprintln(u.out, "\n-- Sign in or sign up --")
			fmt.Fprintln(u.out, "commands: /login <email> <password> | /signup | /back")
		case session.ViewPublicInfo:
			fmt.Fprintln(u.out, "\n"+renderMarkdown(aboutMarkdown))
			fmt.Fprintln(u.out, "commands: /back")
		default:
			fmt.Fprintln(u.out, "\nWelcome to ConnectSphere — where your interests bring you closer to new people.")
			fmt.Fprintln(u.out, "commands: /start | /about | /quit")
		}
		return
	}

	switch u.session.Page() {
	case session.PageDiscover:
		u.renderDiscover(ctx)
	case session.PageChat:
		u.renderChat()
	case session.PageAbout:
		fmt.Fprintln(u.out, "\n"+renderMarkdown(aboutMarkdown))
		fmt.Fprintln(u.out, "commands: /feed | /discover | /logout")
	default:
		u.renderFeed(ctx)
	}
}

func (u *UI) renderFeed(ctx context.Context) {
	u.mu.Lock()
	mount := !u.feedMounted
	u.feedMounted = true
	u.mu.Unlock()
	if mount {
		u.feed.Subscribe(ctx)
	}

	fmt.Fprintln(u.out, "\n-- Feed --")
	for i, post := range u.feed.Posts() {
		summary, _ := u.feed.Summary(post.ID)
		fmt.Fprint(u.out, formatPost(i+1, post, summary, u.feed.Summarizing(post.ID)))
	}
	if u.feed.Submitting() {
		fmt.Fprintln(u.out, "(posting...)")
	}
	fmt.Fprintln(u.out, "commands: /post <text> | /sum <n> | /discover | /about | /logout")
}

func (u *UI) renderDiscover(ctx context.Context) {
	u.mu.Lock()
	mount := !u.discoverMounted
	u.discoverMounted = true
	u.mu.Unlock()
	if mount {
		u.discover.Subscribe(ctx)
	}

	profile := u.session.Profile()
	fmt.Fprintln(u.out, "\n-- Discover --")
	if !u.discover.Loaded() {
		fmt.Fprintln(u.out, "Loading users...")
	}
	matched := u.discover.Matched(profile)
	if u.discover.Loaded() && len(matched) == 0 {
		fmt.Fprintln(u.out, "No users with similar interests found yet.")
	}
	for i, user := range matched {
		fmt.Fprint(u.out, formatUser(i+1, user))
	}
	fmt.Fprintln(u.out, "commands: /chat <n> | /feed | /about | /logout")
}

func (u *UI) renderChat() {
	target := u.session.ChatTarget()
	if target == nil {
		fmt.Fprintln(u.out, "\nNo chat selected; pick someone on /discover first.")
		u.session.SetPage(session.PageDiscover)
		return
	}

	fmt.Fprintf(u.out, "\n-- Chat with %s --\n", target.Name)
	me := u.currentUID()
	for _, msg := range u.chat.Messages() {
		fmt.Fprint(u.out, formatMessage(me, msg))
	}

	if u.chat.FetchingIcebreakers() {
		fmt.Fprintln(u.out, "(generating icebreakers...)")
	}
	if breakers := u.chat.Icebreakers(); len(breakers) > 0 {
		fmt.Fprintln(u.out, "Icebreakers — /pick <n> to use one, /dismiss to close:")
		for _, line := range breakers {
			fmt.Fprintf(u.out, "  %s\n", line)
		}
	}
	if draft := u.chat.Draft(); draft != "" {
		fmt.Fprintf(u.out, "[draft] %s\n", draft)
	}
	fmt.Fprintln(u.out, "type a message, or: /send | /ice | /discover | /logout")
}

func (u *UI) dispatch(ctx context.Context, line string) error {
	if line == "" {
		return nil
	}

	if !u.session.Authenticated() {
		u.dispatchLoggedOut(ctx, line)
		return nil
	}

	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "/feed":
		u.navigate(session.PageFeed)
	case "/discover":
		u.navigate(session.PageDiscover)
	case "/about":
		u.navigate(session.PageAbout)
	case "/logout":
		u.teardown()
		u.session.SignOut()
	case "/post":
		u.feed.SetDraft(rest)
		u.feed.Submit(ctx, u.session.Profile())
	case "/sum":
		u.summarize(ctx, rest)
	case "/chat":
		u.startChat(ctx, rest)
	case "/ice":
		u.chat.FetchIcebreakers(ctx)
	case "/pick":
		if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
			u.chat.SelectIcebreaker(n - 1)
		}
	case "/dismiss":
		u.chat.DismissIcebreakers()
	case "/send":
		u.chat.Send(ctx)
	default:
		if u.session.Page() == session.PageChat {
			u.chat.SetDraft(line)
			u.chat.Send(ctx)
		} else {
			fmt.Fprintf(u.out, "unknown command: %s\n", cmd)
		}
	}
	return nil
}

func (u *UI) dispatchLoggedOut(ctx context.Context, line string) {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "/start":
		u.session.SetView(session.ViewCredentials)
	case "/about":
		u.session.SetView(session.ViewPublicInfo)
	case "/back":
		u.session.SetView(session.ViewLanding)
	case "/login":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			fmt.Fprintln(u.out, "usage: /login <email> <password>")
			return
		}
		u.session.SignIn(ctx, fields[0], fields[1])
	case "/signup":
		u.session.SignUp(ctx, u.promptSignup())
	default:
		fmt.Fprintf(u.out, "unknown command: %s\n", cmd)
	}
}

func (u *UI) promptSignup() session.SignupForm {
	var form session.SignupForm
	form.Name = u.prompt("Full name")
	form.Age, _ = strconv.Atoi(u.prompt("Age"))
	form.Interests = u.prompt("Interests (e.g. coding, music)")
	form.Email = u.prompt("Email")
	form.Password = u.prompt("Password")
	return form
}

func (u *UI) prompt(label string) string {
	fmt.Fprintf(u.out, "%s: ", label)
	if !u.in.Scan() {
		return ""
	}
	return strings.TrimSpace(u.in.Text())
}

func (u *UI) summarize(ctx context.Context, rest string) {
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		fmt.Fprintln(u.out, "usage: /sum <n>")
		return
	}
	posts := u.feed.Posts()
	if n < 1 || n > len(posts) {
		fmt.Fprintln(u.out, "no such post")
		return
	}
	u.feed.Summarize(ctx, posts[n-1].ID, posts[n-1].Content)
}

func (u *UI) startChat(ctx context.Context, rest string) {
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		fmt.Fprintln(u.out, "usage: /chat <n>")
		return
	}
	profile := u.session.Profile()
	matched := u.discover.Matched(profile)
	if n < 1 || n > len(matched) {
		fmt.Fprintln(u.out, "no such user")
		return
	}
	target := matched[n-1]
	u.session.StartChat(target)
	u.mu.Lock()
	u.chatMounted = true
	u.chatPrinted = 0
	u.mu.Unlock()
	u.chat.Start(ctx, *profile, target)
}

// navigate switches page, releasing the listeners of views being left.
// The mount flag is cleared before the listener stops, so a delivery
// racing the navigation cannot print into the next view.
func (u *UI) navigate(p session.Page) {
	u.mu.Lock()
	stopChat := p != session.PageChat && u.chatMounted
	stopFeed := p != session.PageFeed && u.feedMounted
	stopDiscover := p != session.PageDiscover && u.discoverMounted
	if stopChat {
		u.chatMounted = false
	}
	if stopFeed {
		u.feedMounted = false
	}
	if stopDiscover {
		u.discoverMounted = false
	}
	u.mu.Unlock()

	if stopChat {
		u.chat.Stop()
	}
	if stopFeed {
		u.feed.Unsubscribe()
	}
	if stopDiscover {
		u.discover.Unsubscribe()
	}
	u.session.SetPage(p)
}

func (u *UI) teardown() {
	u.mu.Lock()
	stopChat := u.chatMounted
	stopFeed := u.feedMounted
	stopDiscover := u.discoverMounted
	u.chatMounted = false
	u.feedMounted = false
	u.discoverMounted = false
	u.mu.Unlock()

	if stopChat {
		u.chat.Stop()
	}
	if stopFeed {
		u.feed.Unsubscribe()
	}
	if stopDiscover {
		u.discover.Unsubscribe()
	}
}
