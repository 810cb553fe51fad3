package chathub

import (
	"campusconnect/backend/internal/apperrors"
	"campusconnect/backend/internal/chat"
	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/models"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// State is a live session's position in its protocol lifecycle.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateSubscribing
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Authenticator resolves a presented credential to a verified user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// ChatService is the part of the chat core the gateway drives.
type ChatService interface {
	AuthorizeSubscription(ctx context.Context, groupID, userID string) (string, error)
	SendMessage(ctx context.Context, groupID, senderID, content string) (*chat.MessageView, error)
}

// Gateway runs the per-connection protocol and turns chat service results
// into registry broadcasts.
type Gateway struct {
	auth     Authenticator
	chat     ChatService
	registry *Registry
	cfg      config.GatewayConfig
	log      *slog.Logger

	sessions sync.WaitGroup
}

func NewGateway(auth Authenticator, chatSvc ChatService, registry *Registry, cfg config.GatewayConfig, log *slog.Logger) *Gateway {
	return &Gateway{
		auth:     auth,
		chat:     chatSvc,
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Serve runs one live session on an established websocket until it
// closes. It blocks for the lifetime of the connection.
func (g *Gateway) Serve(ctx context.Context, ws *websocket.Conn, token, groupID string) {
	g.sessions.Add(1)
	defer g.sessions.Done()

	s := &session{
		gateway: g,
		ws:      ws,
		groupID: groupID,
		state:   StateConnecting,
		limiter: rate.NewLimiter(rate.Every(g.cfg.RateInterval/time.Duration(g.cfg.RateBurst)), g.cfg.RateBurst),
		log:     g.log.With("group_id", groupID),
	}
	s.run(ctx, token)
}

// Shutdown closes every live connection and waits for their sessions to
// finish cleanup, or for ctx to expire.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.registry.CloseAll()

	done := make(chan struct{})
	go func() {
		g.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotifyMessage fans out a message persisted outside the live channel.
func (g *Gateway) NotifyMessage(view chat.MessageView) {
	g.registry.Broadcast(view.GroupID, view.Event(), nil)
}

func (g *Gateway) NotifyMembersAdded(groupID string, userIDs []string) {
	if len(userIDs) == 0 {
		return
	}
	g.registry.Broadcast(groupID, models.NewMembersAddedEvent(groupID, userIDs), nil)
}

// NotifyMemberLeft announces the leave and drops the leaver's live
// connections to the group, which must re-subscribe to be admitted again.
func (g *Gateway) NotifyMemberLeft(result chat.LeaveResult) {
	evt := result.Event()
	g.registry.Broadcast(result.GroupID, evt, nil)
	g.registry.CloseUser(result.GroupID, result.UserID)
}

// DeliverRemote applies an event relayed from another instance.
func (g *Gateway) DeliverRemote(groupID string, evt models.Event) {
	g.registry.DeliverLocal(groupID, evt)
	if evt.Type == models.EventMemberLeft && evt.UserID != "" {
		g.registry.CloseUser(groupID, evt.UserID)
	}
}

type session struct {
	gateway *Gateway
	ws      *websocket.Conn
	groupID string

	state    State
	userID   string
	userName string
	client   *WebSocketClient
	limiter  *rate.Limiter
	log      *slog.Logger
}

func (s *session) transition(next State) {
	s.log.Debug("session state change", "from", s.state.String(), "to", next.String())
	s.state = next
}

func (s *session) run(ctx context.Context, token string) {
	s.transition(StateAuthenticating)
	userID, err := s.gateway.auth.Authenticate(token)
	if err != nil {
		s.log.Info("rejected live connection", "reason", "authentication", "error", err)
		s.reject(websocket.ClosePolicyViolation, "invalid credential")
		return
	}
	s.userID = userID
	s.log = s.log.With("user_id", userID)

	s.transition(StateSubscribing)
	userName, err := s.gateway.chat.AuthorizeSubscription(ctx, s.groupID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPermissionDenied) || errors.Is(err, apperrors.ErrNotFound) {
			s.log.Info("rejected live connection", "reason", "subscription", "error", err)
			s.reject(websocket.ClosePolicyViolation, apperrors.Code(err))
		} else {
			s.log.Error("failed to authorize subscription", "error", err)
			s.reject(websocket.CloseInternalServerErr, "internal error")
		}
		return
	}
	s.userName = userName

	s.transition(StateActive)
	s.client = NewWebSocketClient(s.ws, userID, s.gateway.cfg, s.gateway.log.With("group_id", s.groupID))
	go s.client.writePump()
	s.gateway.registry.Register(s.client, s.groupID, userID)

	s.client.readPump(func(data []byte) { s.handleFrame(ctx, data) })
	s.close()
}

// reject closes a connection that never reached Active.
func (s *session) reject(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.gateway.cfg.WriteWait))
	_ = s.ws.Close()
	s.transition(StateClosed)
}

func (s *session) close() {
	s.transition(StateClosed)
	s.gateway.registry.Unregister(s.client)
	s.client.Close()
	<-s.client.Done()

	s.gateway.registry.Broadcast(s.groupID, models.NewUserLeftEvent(s.userID, s.userName), nil)
	s.log.Debug("live connection closed", "conn_id", s.client.ID)
}

// handleFrame processes one inbound frame. Frames are handled in arrival
// order because the read pump calls this synchronously. Malformed frames
// are dropped before they count against the rate limit.
func (s *session) handleFrame(ctx context.Context, data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		s.log.Debug("dropping malformed frame", "error", err)
		return
	}
	if !s.limiter.Allow() {
		s.sendError("rate_limited", "too many frames, slow down")
		return
	}

	switch f := frame.(type) {
	case MessageFrame:
		// A started send completes even if the peer disconnects meanwhile.
		view, err := s.gateway.chat.SendMessage(context.WithoutCancel(ctx), s.groupID, s.userID, f.Content)
		if err != nil {
			if apperrors.HTTPStatus(err) >= 500 {
				s.log.Error("failed to send message", "error", err)
			}
			s.sendError(apperrors.Code(err), apperrors.PublicMessage(err))
			return
		}
		s.gateway.registry.Broadcast(s.groupID, view.Event(), nil)
	case TypingFrame:
		s.gateway.registry.Broadcast(s.groupID, models.NewTypingEvent(s.userID, f.IsTyping), s.client)
	}
}

// sendError notifies only this connection that its frame was rejected.
func (s *session) sendError(code, message string) {
	if err := s.client.Send(models.NewErrorEvent(code, message)); err != nil {
		s.log.Debug("failed to queue error event", "error", err)
	}
}
