package interfaces

import (
	"context"

	domaintypes "ledgerchat/internal/domain/types"
)

// IdentityService registers a chat key and unlocks it on login.
type IdentityService interface {
	Register(ctx context.Context, self domaintypes.Address) (AsymmetricCipher, error)
	Login(ctx context.Context, self domaintypes.Address) (AsymmetricCipher, error)
}

// SessionService establishes and resolves conversation secrets.
type SessionService interface {
	Launch(ctx context.Context, peer domaintypes.Address) (domaintypes.Session, error)
	Rotate(ctx context.Context, peer domaintypes.Address) (domaintypes.Session, error)
	Resolve(ctx context.Context, peer domaintypes.Address) (domaintypes.Session, error)
	State(ctx context.Context, peer domaintypes.Address) (domaintypes.SessionState, error)
	Contacts(ctx context.Context) ([]domaintypes.Address, error)
}

// MessageService encrypts, sends, fetches and follows a conversation.
type MessageService interface {
	Send(
		ctx context.Context,
		session domaintypes.Session,
		text string,
	) (domaintypes.Receipt, error)
	Fetch(ctx context.Context, session domaintypes.Session) (domaintypes.Conversation, error)
	Subscribe(
		ctx context.Context,
		session domaintypes.Session,
		onMessage func(domaintypes.ConversationEntry),
	) (Subscription, error)
}

// Subscription is a cancelable live feed of new conversation entries.
type Subscription interface {
	// Cancel stops delivery. It is idempotent and returns once no further
	// callbacks can run.
	Cancel()
	// Done is closed when the subscription has stopped.
	Done() <-chan struct{}
	// Err reports why the subscription stopped, or nil after Cancel.
	Err() error
}
