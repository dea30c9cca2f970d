package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/ports/adapter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func chatID(recipient string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("recipient %q: %w", recipient, domain.ErrInvalidArgument)
	}
	return id, nil
}

func (b *Bot) send(ctx context.Context, op string, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.client().Send(c); err != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransportFailure, err)
	}
	return nil
}

func (b *Bot) request(ctx context.Context, op string, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.client().Request(c); err != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransportFailure, err)
	}
	return nil
}

func (b *Bot) SendText(ctx context.Context, recipientID, text string) error {
	id, err := chatID(recipientID)
	if err != nil {
		return err
	}
	return b.send(ctx, "send message", tgbotapi.NewMessage(id, text))
}

// SendButtons sends a message with an inline keyboard.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else the label doubles as callback data
func (b *Bot) SendButtons(ctx context.Context, recipientID, text string, rows [][]adapter.InlineButton) error {
	id, err := chatID(recipientID)
	if err != nil {
		return err
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}

	msg := tgbotapi.NewMessage(id, text)
	if len(kbRows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	}
	return b.send(ctx, "send buttons", msg)
}

// SendPhoto re-sends an already uploaded photo by its file id.
func (b *Bot) SendPhoto(ctx context.Context, recipientID, fileRef, caption string) error {
	id, err := chatID(recipientID)
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(id, tgbotapi.FileID(fileRef))
	photo.Caption = caption
	return b.send(ctx, "send photo", photo)
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return b.request(ctx, "answer callback", tgbotapi.NewCallback(callbackID, text))
}

// Probe calls getMe. The client has no context support, so the wait is bounded here.
func (b *Bot) Probe(ctx context.Context) error {
	api := b.client()
	errCh := make(chan error, 1)
	go func() {
		_, err := api.GetMe()
		errCh <- err
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("getMe: %w: %w", domain.ErrTransportFailure, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("getMe: %w: %w", domain.ErrTransportFailure, ctx.Err())
	}
}
