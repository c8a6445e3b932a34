package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/realtime"
)

// Notifications pushes a frame to the user's open sockets. With Redis
// configured the frame is published and every replica's relay delivers it;
// otherwise it goes straight to this replica's hub.
type Notifications struct {
	Hub   *realtime.Hub
	Redis *realtime.Notifier
	Log   zerolog.Logger
}

type notification struct {
	Type   string    `json:"type"`
	SentAt time.Time `json:"sent_at"`
	Data   any       `json:"data"`
}

func (n *Notifications) Send(ctx context.Context, userID uuid.UUID, kind string, data any) {
	if n == nil {
		return
	}
	frame := notification{Type: kind, SentAt: time.Now().UTC(), Data: data}
	if n.Redis.Enabled() {
		err := n.Redis.Notify(ctx, userID, frame)
		if err == nil {
			return
		}
		n.Log.Warn().Err(err).Str("user_id", userID.String()).Str("type", kind).Msg("publish notification, delivering locally")
	}
	if n.Hub != nil {
		n.Hub.SendToUser(userID, frame)
	}
}
