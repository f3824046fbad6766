package socket

import (
	"context"
	"log"

	"jamaah_server/models"
	"jamaah_server/services"

	socketio "github.com/googollee/go-socket.io"
)

// PresenceSubscribeRequest subscribes a user to the available-presence
// feed, optionally narrowed to one category facet.
type PresenceSubscribeRequest struct {
	UserID   string `json:"userId"`
	Category string `json:"category,omitempty"`
}

type connSubs struct {
	byKind map[string]*Subscription
}

// NewSocketServer wires the subscription hub onto a Socket.IO transport.
// Each connection may hold one subscription per feed kind; subscribing
// again replaces the previous handle, and disconnecting releases all of
// them.
func NewSocketServer(hub *Hub, presence *services.PresenceService, invites *services.InviteService) *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&connSubs{byKind: make(map[string]*Subscription)})
		log.Println("Socket connected:", s.ID())
		return nil
	})

	server.OnEvent("/", "subscribePresence", func(s socketio.Conn, req PresenceSubscribeRequest) {
		if req.UserID == "" {
			s.Emit("feedError", "userId is required")
			return
		}
		facets := map[string]string{}
		if req.Category != "" {
			facets[models.CategoryAttributeName] = req.Category
		}
		snapshot := func(ctx context.Context) (interface{}, error) {
			return presence.QueryAvailable(ctx, facets, req.UserID, models.DefaultNearbyLimit)
		}
		attach(s, hub, req.UserID, models.FeedPresence, models.FeedPresence, snapshot)
	})

	server.OnEvent("/", "subscribeInbox", func(s socketio.Conn, userID string) {
		if userID == "" {
			s.Emit("feedError", "userId is required")
			return
		}
		snapshot := func(ctx context.Context) (interface{}, error) {
			return invites.GetInbox(ctx, userID)
		}
		attach(s, hub, userID, models.FeedInbox, models.UserFeed(models.FeedInbox, userID), snapshot)
	})

	server.OnEvent("/", "subscribeSent", func(s socketio.Conn, userID string) {
		if userID == "" {
			s.Emit("feedError", "userId is required")
			return
		}
		snapshot := func(ctx context.Context) (interface{}, error) {
			return invites.GetSent(ctx, userID)
		}
		attach(s, hub, userID, models.FeedSent, models.UserFeed(models.FeedSent, userID), snapshot)
	})

	server.OnEvent("/", "unsubscribe", func(s socketio.Conn, kind string) {
		if subs, ok := s.Context().(*connSubs); ok {
			if sub, ok := subs.byKind[kind]; ok {
				sub.Release()
				delete(subs.byKind, kind)
			}
		}
	})

	server.OnError("/", func(s socketio.Conn, err error) {
		log.Println("Socket error:", err)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if subs, ok := s.Context().(*connSubs); ok {
			for _, sub := range subs.byKind {
				sub.Release()
			}
		}
		log.Println("Socket disconnected:", s.ID(), reason)
	})

	return server
}

// attach registers a hub subscription delivering onto the connection and
// tracks it per feed kind so a later subscribe or disconnect releases it.
func attach(s socketio.Conn, hub *Hub, userID, kind, topic string, snapshot SnapshotFunc) {
	subs, ok := s.Context().(*connSubs)
	if !ok {
		return
	}
	if prev, ok := subs.byKind[kind]; ok {
		prev.Release()
	}

	subs.byKind[kind] = hub.Subscribe(userID, topic, snapshot,
		func(payload interface{}) {
			s.Emit(kind, payload)
		},
		func(err error) {
			s.Emit("feedError", err.Error())
		})
}
