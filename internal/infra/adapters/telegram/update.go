package telegram

import (
	"strconv"
	"strings"
	"time"

	"telegram-vpn-orders/internal/application"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// toEvent reduces an update to a dispatcher event. Updates without a sender, and kinds the
// bot does not handle (edits, channel posts, ...), yield nil.
func toEvent(up tgbotapi.Update) *application.Event {
	if q := up.CallbackQuery; q != nil {
		if q.From == nil {
			return nil
		}
		ev := newEvent(application.EventCallback, q.From, time.Now())
		if q.Message != nil && q.Message.Chat != nil {
			ev.ChatID = strconv.FormatInt(q.Message.Chat.ID, 10)
		}
		ev.CallbackID = q.ID
		ev.CallbackData = q.Data
		return ev
	}

	m := up.Message
	if m == nil || m.From == nil {
		return nil
	}
	ev := newEvent(application.EventText, m.From, time.Unix(int64(m.Date), 0))
	if m.Chat != nil {
		ev.ChatID = strconv.FormatInt(m.Chat.ID, 10)
	}

	switch {
	case m.IsCommand():
		ev.Kind = application.EventCommand
		ev.Command = strings.ToLower(m.Command())
		ev.Args = strings.TrimSpace(m.CommandArguments())
	case len(m.Photo) > 0:
		ev.Kind = application.EventPhoto
		// Sizes are ascending; forward the largest.
		ev.PhotoRef = m.Photo[len(m.Photo)-1].FileID
		ev.Text = m.Caption
	default:
		ev.Text = m.Text
	}
	return ev
}

func newEvent(kind application.EventKind, from *tgbotapi.User, at time.Time) *application.Event {
	id := strconv.FormatInt(from.ID, 10)
	return &application.Event{
		Kind:       kind,
		SenderID:   id,
		ChatID:     id,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
		ReceivedAt: at,
	}
}
