// Package telegram is the chat transport: long polling in, rendered HTML
// messages out.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PabloGalante/kbju-bot/internal/app/dispatch"
	"github.com/PabloGalante/kbju-bot/internal/domain"
	"github.com/PabloGalante/kbju-bot/internal/observability"
)

// botAPI is the part of *tgbotapi.BotAPI the transport uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// EventHandler processes one chat event.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.Event) (*domain.Response, error)
}

// Bot feeds Telegram updates through the dispatcher, so each user's
// updates are handled in arrival order.
type Bot struct {
	api        botAPI
	handler    EventHandler
	dispatcher *dispatch.Dispatcher
	files      *http.Client
}

// New authorizes the token against the Bot API.
func New(token string, handler EventHandler, dispatcher *dispatch.Dispatcher) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	observability.Logger().Info("telegram bot authorized", "username", api.Self.UserName)
	return newBot(api, handler, dispatcher), nil
}

func newBot(api botAPI, handler EventHandler, dispatcher *dispatch.Dispatcher) *Bot {
	return &Bot{
		api:        api,
		handler:    handler,
		dispatcher: dispatcher,
		files:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Run polls updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

// incoming is an update mapped to a domain event plus where to reply.
type incoming struct {
	event      domain.Event
	chatID     int64
	callbackID string
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	in, ok := b.toIncoming(update)
	if !ok {
		return
	}

	if !b.dispatcher.Submit(in.event.UserID, func(ctx context.Context) { b.process(ctx, in) }) {
		observability.Logger().Warn("dropping update after shutdown", "update_id", update.UpdateID)
	}
}

func (b *Bot) toIncoming(update tgbotapi.Update) (incoming, bool) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.From == nil {
			return incoming{}, false
		}
		chatID := cb.From.ID
		if cb.Message != nil && cb.Message.Chat != nil {
			chatID = cb.Message.Chat.ID
		}
		return incoming{
			event: domain.Event{
				UserID:     domain.UserID(cb.From.ID),
				User:       toUserInfo(cb.From),
				ButtonData: cb.Data,
			},
			chatID:     chatID,
			callbackID: cb.ID,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return incoming{}, false
	}

	ev := domain.Event{
		UserID:  domain.UserID(msg.From.ID),
		User:    toUserInfo(msg.From),
		Text:    msg.Text,
		HasText: msg.Text != "",
	}
	if n := len(msg.Photo); n > 0 {
		// the last size is the largest
		largest := msg.Photo[n-1]
		ev.Photo = photoRef{
			fileID:   largest.FileID,
			uniqueID: largest.FileUniqueID,
			api:      b.api,
			client:   b.files,
		}
	}

	return incoming{event: ev, chatID: msg.Chat.ID}, true
}

func toUserInfo(u *tgbotapi.User) domain.UserInfo {
	return domain.UserInfo{
		ID:           domain.UserID(u.ID),
		IsBot:        u.IsBot,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.UserName,
		LanguageCode: u.LanguageCode,
	}
}

func (b *Bot) process(ctx context.Context, in incoming) {
	ctx = observability.WithUserID(ctx, in.event.UserID)
	log := observability.LoggerFromContext(ctx)

	resp, err := b.handler.Handle(ctx, in.event)
	if err != nil {
		log.Error("event handled with error", "error", err)
	}
	if resp == nil {
		resp = &domain.Response{Kind: domain.ResponseInternalFailure}
	}

	reply := Render(resp)

	out := tgbotapi.NewMessage(in.chatID, reply.Text)
	out.ParseMode = tgbotapi.ModeHTML
	if reply.Markup != nil {
		out.ReplyMarkup = reply.Markup
	}
	if _, err := b.api.Send(out); err != nil {
		log.Error("failed to send reply", "kind", resp.Kind, "error", err)
	}

	if in.callbackID != "" {
		// stops the spinner on the pressed button
		if _, err := b.api.Request(tgbotapi.NewCallback(in.callbackID, reply.CallbackText)); err != nil {
			log.Warn("failed to answer callback", "error", err)
		}
	}
}
