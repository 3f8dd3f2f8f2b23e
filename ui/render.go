package ui

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/klipach/connectsphere/contract"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var (
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
	stripPolicy     = bluemonday.StrictPolicy()
)

// renderMarkdown converts markdown to plain terminal text: render to
// HTML, strip every tag, unescape entities.
func renderMarkdown(md []byte) string {
	rendered := blackfriday.Run(md)
	text := html.UnescapeString(stripPolicy.Sanitize(string(rendered)))
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// sanitizeContent strips any HTML a user managed to get into free-text
// content before it reaches the terminal.
func sanitizeContent(text string) string {
	return html.UnescapeString(stripPolicy.Sanitize(text))
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "just now"
	}
	return t.Local().Format("Jan 2 15:04")
}

func formatPost(i int, post contract.Post, summary string, summarizing bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s (%s)\n", i, post.AuthorName, formatTimestamp(post.Timestamp))
	fmt.Fprintf(&b, "    %s\n", sanitizeContent(post.Content))
	if summarizing {
		b.WriteString("    * Summarizing...\n")
	} else if summary != "" {
		fmt.Fprintf(&b, "    * Summary: %s\n", summary)
	}
	return b.String()
}

func formatUser(i int, user contract.UserProfile) string {
	return fmt.Sprintf("[%d] %s, %d — interests: %s\n", i, user.Name, user.Age, strings.Join(user.Interests, ", "))
}

func formatMessage(me string, msg contract.ChatMessage) string {
	who := "them"
	if msg.SenderID == me {
		who = "you"
	}
	return fmt.Sprintf("  %s (%s): %s\n", who, formatTimestamp(msg.Timestamp), sanitizeContent(msg.Text))
}
