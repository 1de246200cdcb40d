// Package announce turns rotation outcomes into chat-ready text. It sits
// outside the rotation core; swap the Formatter to change wording.
package announce

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
)

// Topic is the per-kind wording: the listing title and a short noun used in
// replies, e.g. {"🥛 Milk queue", "🥛"}.
type Topic struct {
	Title string
	Emoji string
}

type Formatter interface {
	// Listing renders the roster starting at the current holder.
	Listing(topic Topic, r domain.Roster) string
	// Reply is the short message for the actor who triggered out.
	Reply(topic Topic, out core.Outcome) string
	// Handover names outgoing and incoming after a successful advance.
	Handover(topic Topic, outgoing, incoming domain.Member) string
	// Greeting picks the weekly wish for a week number.
	Greeting(week int) string
}

var supported = []language.Tag{language.English, language.Russian}

// Catalog is the default Formatter backed by x/text message catalogs.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
	book    phrasebook
	// pick returns a number in [0,n); replaced in tests.
	pick func(n int) int
}

var _ Formatter = (*Catalog)(nil)

// New builds a formatter for locale ("en", "ru", "ru-BY", ...). Unknown
// locales fall back to English.
func New(locale string) (*Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, book := range phrasebooks {
		for key, msg := range book.messages {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("catalog %s/%s: %w", tag, key, err)
			}
		}
	}

	tag := language.English
	if locale != "" {
		want, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		_, idx, _ := language.NewMatcher(supported).Match(want)
		tag = supported[idx]
	}

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
		book:    phrasebooks[tag],
		pick:    rand.IntN,
	}, nil
}

// Lang reports the matched language.
func (c *Catalog) Lang() language.Tag { return c.tag }

func (c *Catalog) Listing(topic Topic, r domain.Roster) string {
	entries := core.Order(r)
	if len(entries) == 0 {
		return topic.Title + "\n" + c.printer.Sprintf(keyQueueEmpty)
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, topic.Title)
	marker := c.printer.Sprintf(keyCurrent)
	for _, e := range entries {
		line := fmt.Sprintf("%d. %s", e.Position, e.Member.DisplayName)
		if e.Current {
			line += " " + marker
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (c *Catalog) Reply(topic Topic, out core.Outcome) string {
	switch out.Result {
	case core.Joined:
		return c.printer.Sprintf(keyJoined, topic.Title)
	case core.AlreadyMember:
		return c.printer.Sprintf(keyAlreadyMember, topic.Title)
	case core.Left:
		if out.Incoming != nil {
			return c.printer.Sprintf(keyLeftHandover, topic.Title, out.Incoming.DisplayName)
		}
		return c.printer.Sprintf(keyLeft, topic.Title)
	case core.NotMember:
		return c.printer.Sprintf(keyNotMember, topic.Title)
	case core.EmptyQueue:
		return c.printer.Sprintf(keyEmptyQueue)
	case core.NotYourTurn:
		name := "?"
		if out.Current != nil {
			name = out.Current.DisplayName
		}
		return c.printer.Sprintf(keyNotYourTurn, name)
	case core.Advanced:
		if out.Outgoing != nil && out.Incoming != nil {
			return c.Handover(topic, *out.Outgoing, *out.Incoming)
		}
	case core.Bound:
		return c.printer.Sprintf(keyBound)
	}
	return string(out.Result)
}

func (c *Catalog) Handover(topic Topic, outgoing, incoming domain.Member) string {
	phrase := c.book.handover[c.pick(len(c.book.handover))]
	return fmt.Sprintf(phrase, incoming.DisplayName, topic.Emoji, outgoing.DisplayName)
}

func (c *Catalog) Greeting(week int) string {
	n := len(c.book.greeting)
	return c.book.greeting[((week%n)+n)%n]
}
