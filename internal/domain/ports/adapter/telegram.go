package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Messenger is the outbound side of the messaging transport. Recipients are the
// platform's external ids. Failures wrap domain.ErrTransportFailure.
type Messenger interface {
	SendText(ctx context.Context, recipientID, text string) error
	SendButtons(ctx context.Context, recipientID, text string, rows [][]InlineButton) error
	SendPhoto(ctx context.Context, recipientID, fileRef, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Prober is the lightweight round-trip used only to confirm the transport is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}
