package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coderipple/coderipple-go/internal/dependencies/random"
	"github.com/coderipple/coderipple-go/internal/model"
	"github.com/coderipple/coderipple-go/internal/services/room"
)

const (
	// ConnectionIDLength is the length of generated connection ids
	ConnectionIDLength = 16
	// ConnectionIDAlphabet is the characters used in connection ids
	ConnectionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Ensure Broadcaster satisfies the controller's sink contract
var _ room.EventSink = (*Broadcaster)(nil)

// Gateway owns the websocket surface: it upgrades connections, assigns
// each one an opaque connection id, routes inbound envelopes to room
// operations, and wires clients in and out of their room's hub. A
// dropped connection behaves exactly like an explicit leave.
type Gateway struct {
	controller room.ControllerInterface
	hubs       *HubManager
	random     random.Random
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewGateway creates a new Gateway. checkOrigin decides which browser
// origins may open a connection; nil allows all.
func NewGateway(
	controller room.ControllerInterface,
	hubs *HubManager,
	rnd random.Random,
	logger *slog.Logger,
	checkOrigin func(r *http.Request) bool,
) *Gateway {
	return &Gateway{
		controller: controller,
		hubs:       hubs,
		random:     rnd,
		logger:     logger.With(slog.String("component", "gateway")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleWS upgrades an HTTP request to a websocket session and serves it
// until the connection drops
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := newClient(model.ConnectionID(g.random.String(ConnectionIDLength, ConnectionIDAlphabet)), conn)
	g.logger.Info("connection opened", slog.String("connection", string(client.id)))

	go client.writePump()
	g.readLoop(client)
}

// readLoop reads inbound envelopes until the connection fails, then runs
// disconnect cleanup. Reads for one connection are strictly sequential,
// so a single client's requests are handled in order.
func (g *Gateway) readLoop(client *Client) {
	defer func() {
		g.disconnect(client)
		client.Close()
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("connection read failed",
					slog.String("connection", string(client.id)),
					slog.Any("error", err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			g.replyError(client, "", wireError{CodeInvalidArgument, "Malformed message"})
			continue
		}
		g.dispatch(client, env)
	}
}

// dispatch routes one inbound envelope to the matching room operation
// and writes the direct reply
func (g *Gateway) dispatch(client *Client, env Envelope) {
	ctx := context.Background()

	switch env.Type {
	case TypeCreateRoom:
		var req createRoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Malformed message"})
			return
		}
		username, ok := validUsername(req.Username)
		if !ok {
			g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Username must be 1-20 characters"})
			return
		}
		created, err := g.controller.CreateRoom(ctx, client.id, username)
		if err != nil {
			g.replyError(client, env.ID, toWireError(err))
			return
		}
		g.hubs.GetOrCreateHub(created.ID).Register(client)
		g.reply(client, env, roomReply{Room: created.Snapshot()})

	case TypeJoinRoom:
		var req joinRoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Malformed message"})
			return
		}
		username, ok := validUsername(req.Username)
		if !ok {
			g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Username must be 1-20 characters"})
			return
		}
		roomID := model.NormalizeRoomID(req.RoomID)
		joined, err := g.controller.JoinRoom(ctx, roomID, client.id, username)
		if err != nil {
			g.replyError(client, env.ID, toWireError(err))
			return
		}
		// Registration happens after the join broadcast: existing members
		// get playerJoined, the joiner gets only the snapshot reply
		g.hubs.GetOrCreateHub(joined.ID).Register(client)
		g.reply(client, env, roomReply{Room: joined.Snapshot()})

	case TypeLeaveRoom:
		g.detachAndLeave(ctx, client)
		g.reply(client, env, successReply{Success: true})

	case TypeGetPublicRooms:
		rooms, err := g.controller.ListPublicRooms(ctx)
		if err != nil {
			g.replyError(client, env.ID, toWireError(err))
			return
		}
		g.reply(client, env, roomListReply{Rooms: rooms})

	case TypeSetDigitLength:
		var req setDigitLengthRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Malformed message"})
			return
		}
		if err := g.controller.SetDigitLength(ctx, model.NormalizeRoomID(req.RoomID), client.id, req.DigitLength); err != nil {
			g.replyError(client, env.ID, toWireError(err))
			return
		}
		g.reply(client, env, successReply{Success: true})

	case TypeStartGame:
		var req roomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Malformed message"})
			return
		}
		if err := g.controller.StartGame(ctx, model.NormalizeRoomID(req.RoomID), client.id); err != nil {
			g.replyError(client, env.ID, toWireError(err))
			return
		}
		g.reply(client, env, successReply{Success: true})

	case TypeSubmitGuess:
		var req submitGuessRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Malformed message"})
			return
		}
		outcome, err := g.controller.SubmitGuess(ctx, model.NormalizeRoomID(req.RoomID), client.id, req.Guess)
		if err != nil {
			g.replyError(client, env.ID, toWireError(err))
			return
		}
		g.reply(client, env, outcome)

	case TypeRestartGame:
		var req roomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Malformed message"})
			return
		}
		if err := g.controller.RestartGame(ctx, model.NormalizeRoomID(req.RoomID), client.id); err != nil {
			g.replyError(client, env.ID, toWireError(err))
			return
		}
		g.reply(client, env, successReply{Success: true})

	case TypeChatMessage:
		var req chatRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		// Chat has no direct reply; invalid chat is dropped silently
		g.controller.PostChat(ctx, model.NormalizeRoomID(req.RoomID), client.id, req.Text)

	default:
		g.replyError(client, env.ID, wireError{CodeInvalidArgument, "Unknown message type"})
	}
}

// disconnect handles a terminated connection as an implicit leave
func (g *Gateway) disconnect(client *Client) {
	g.detachAndLeave(context.Background(), client)
	g.logger.Info("connection closed", slog.String("connection", string(client.id)))
}

// detachAndLeave removes the client from its room's hub before running
// the leave, so the departing player never receives the playerLeft or
// hostChanged broadcasts their own departure triggers
func (g *Gateway) detachAndLeave(ctx context.Context, client *Client) {
	if roomID, err := g.controller.FindRoomByMember(ctx, client.id); err == nil {
		if hub := g.hubs.GetHub(roomID); hub != nil {
			hub.Unregister(client)
		}
	}
	if err := g.controller.Leave(ctx, client.id); err != nil {
		g.logger.Error("leave failed",
			slog.String("connection", string(client.id)),
			slog.Any("error", err))
	}
}

// reply writes the direct response to a request, echoing its type and id
func (g *Gateway) reply(client *Client, env Envelope, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error("failed to marshal reply",
			slog.String("type", env.Type),
			slog.Any("error", err))
		return
	}
	message, err := json.Marshal(Envelope{Type: env.Type, ID: env.ID, Data: data})
	if err != nil {
		return
	}
	client.Send(message)
}

// replyError writes an error reply for a failed request
func (g *Gateway) replyError(client *Client, id string, we wireError) {
	data, _ := json.Marshal(errorReply{Error: we})
	message, err := json.Marshal(Envelope{Type: "error", ID: id, Data: data})
	if err != nil {
		return
	}
	client.Send(message)
}

// validUsername trims the raw name and reports whether it is usable
func validUsername(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > model.MaxUsernameLength {
		return "", false
	}
	return name, true
}
