package app

import (
	"context"

	"ledgerchat/internal/domain"
	messagesvc "ledgerchat/internal/services/message"
	sessionsvc "ledgerchat/internal/services/session"
	"ledgerchat/internal/wallet"
)

// App is one logged-in account.
type App struct {
	Self     domain.Address
	Keys     domain.AsymmetricCipher
	Sessions *sessionsvc.Service
	Messages *messagesvc.Service

	wallet *wallet.Connection
}

func New(
	self domain.Address,
	keys domain.AsymmetricCipher,
	sessions *sessionsvc.Service,
	messages *messagesvc.Service,
	w *wallet.Connection,
) *App {
	return &App{
		Self:     self,
		Keys:     keys,
		Sessions: sessions,
		Messages: messages,
		wallet:   w,
	}
}

// Conversation resolves the session with peer and returns its history.
func (a *App) Conversation(ctx context.Context, peer domain.Address) (domain.Session, domain.Conversation, error) {
	sess, err := a.Sessions.Resolve(ctx, peer)
	if err != nil {
		return domain.Session{}, nil, err
	}
	conv, err := a.Messages.Fetch(ctx, sess)
	if err != nil {
		return domain.Session{}, nil, err
	}
	return sess, conv, nil
}

// Logout wipes cached secrets and the chat key, and disconnects the wallet.
func (a *App) Logout() {
	a.Sessions.Close()
	a.Keys.Close()
	a.wallet.Disconnect()
}
