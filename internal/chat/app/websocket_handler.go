package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/encrypt"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/middlewares"
)

// ChatWebsocketHandler exposes the pipeline and the group registry over
// one websocket per authenticated user.
type ChatWebsocketHandler struct {
	groupUC   *GroupUseCase
	messageUC *MessageUseCase
	suggester *ReplySuggester
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(groupUC *GroupUseCase, messageUC *MessageUseCase, suggester *ReplySuggester) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		groupUC:   groupUC,
		messageUC: messageUC,
		suggester: suggester,
	}
}

// messageSink is the write side of a connection.
type messageSink interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// wsWriter serializes writes to one connection. The websocket package
// allows a single concurrent writer, while the ping ticker, the read
// loop and the subscription callback all send on the same connection.
type wsWriter struct {
	mu   sync.Mutex
	sink messageSink
}

func (w *wsWriter) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sink.WriteJSON(v)
}

func (w *wsWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sink.WriteMessage(messageType, data)
}

// connState is the per-connection mutable state: the authenticated user
// and the single active conversation subscription.
type connState struct {
	user        domain.Identity
	conv        domain.Conversation
	unsubscribe func()
}

// dropSubscription cancels the active stream, if any. Entering another
// conversation without this would keep decrypting with a stale key.
func (s *connState) dropSubscription() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// HandleConnection is the entry point of one websocket connection.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	user := domain.Identity{
		UID:         localString(conn, middlewares.TokenUserID),
		Email:       localString(conn, middlewares.TokenEmail),
		DisplayName: localString(conn, middlewares.TokenName),
		PhotoURL:    localString(conn, middlewares.TokenPicture),
	}
	logger.Log.Info("websocket connected", zap.String("uid", user.UID))

	state := &connState{user: user}
	writer := &wsWriter{sink: conn}
	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(ctx)

	defer func() {
		ticker.Stop()
		state.dropSubscription()
		cancel()
		conn.Close()
		logger.Log.Info("websocket closed", zap.String("uid", user.UID))
	}()

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := writer.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("uid", user.UID))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execAction(ctxClose, writer, state, message)
	}
}

func (h *ChatWebsocketHandler) execAction(ctx context.Context, conn *wsWriter, state *connState, raw []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.sendError(conn, "", "malformed request")
		return
	}

	switch domain.Action(req.Action) {
	case domain.CreateGroup:
		input := CreateGroupInput{
			Name:        req.GroupName,
			Description: req.Description,
			Avatar:      req.Avatar,
			MaxMembers:  req.MaxMembers,
			IsPrivate:   req.IsPrivate,
		}
		group, err := h.groupUC.CreateGroup(ctx, input, state.user.UID)
		if err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		h.sendPayload(conn, req.Action, map[string]interface{}{"group": group})

	case domain.JoinGroup:
		group, err := h.groupUC.JoinByCode(ctx, req.Code, state.user.UID)
		if err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		h.sendPayload(conn, req.Action, map[string]interface{}{"group": group})

	case domain.LeaveGroup:
		userID := state.user.UID
		removedBy := ""
		if req.RemoveID != "" {
			userID = req.RemoveID
			removedBy = state.user.UID
		}
		if err := h.groupUC.Leave(ctx, req.GroupID, userID, removedBy); err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		h.messageUC.keys.Forget(req.GroupID)
		h.sendPayload(conn, req.Action, nil)

	case domain.UpdateGroup:
		if err := h.groupUC.UpdateGroup(ctx, req.GroupID, state.user.UID, req.Patch); err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		h.sendPayload(conn, req.Action, nil)

	case domain.EnterConversation:
		state.dropSubscription()
		conv := h.conversation(req, state)
		unsubscribe, err := h.messageUC.SubscribeMessages(ctx, conv, req.Limit, func(views []domain.MessageView) {
			h.sendResponse(conn, domain.WSResponse{
				Action:  string(domain.NotifyMessages),
				Success: true,
				Payload: map[string]interface{}{"chat_id": conv.ID, "messages": views},
			})
		})
		if err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		state.conv = conv
		state.unsubscribe = unsubscribe
		h.sendPayload(conn, req.Action, map[string]interface{}{"chat_id": conv.ID})

	case domain.LeaveConversation:
		state.dropSubscription()
		state.conv = domain.Conversation{}
		h.sendPayload(conn, req.Action, nil)

	case domain.SendMessage:
		conv := h.conversation(req, state)
		msg, err := h.messageUC.SendMessage(ctx, conv, state.user, req.Content)
		if err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		h.sendPayload(conn, req.Action, map[string]interface{}{"message_id": msg.ID, "seq": msg.Seq})

	case domain.LoadOlder:
		conv := h.conversation(req, state)
		before := domain.Cursor{}
		if req.Before != nil {
			before = *req.Before
		}
		views, exhausted, err := h.messageUC.LoadOlderMessages(ctx, conv, before, req.Limit)
		if err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		h.sendPayload(conn, req.Action, map[string]interface{}{"messages": views, "exhausted": exhausted})

	case domain.ReadMessages:
		conv := h.conversation(req, state)
		if err := h.messageUC.MarkConversationRead(ctx, conv, state.user.UID); err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		h.sendPayload(conn, req.Action, nil)

	case domain.GetUnread:
		counters, err := h.messageUC.UnreadCounters(ctx, state.user.UID)
		if err != nil {
			h.sendError(conn, req.Action, userMessage(err))
			return
		}
		h.sendPayload(conn, req.Action, map[string]interface{}{"unread": counters})

	case domain.SuggestReplies:
		if h.suggester == nil {
			h.sendPayload(conn, req.Action, map[string]interface{}{"suggestions": []string{}})
			return
		}
		conv := h.conversation(req, state)
		replies := h.suggester.Replies(ctx, conv.ID, req.LastMsgID, historyOf(req))
		h.sendPayload(conn, req.Action, map[string]interface{}{"suggestions": replies})

	default:
		h.sendError(conn, req.Action, "unknown action")
	}
}

// conversation resolves the target conversation of a request: explicit
// group id, explicit direct peer, or the one currently entered.
func (h *ChatWebsocketHandler) conversation(req domain.WSRequest, state *connState) domain.Conversation {
	switch {
	case req.GroupID != "":
		return domain.NewGroupConversation(req.GroupID)
	case req.OtherID != "":
		return domain.NewDirectConversation(state.user.UID, req.OtherID)
	default:
		return state.conv
	}
}

func historyOf(req domain.WSRequest) []string {
	if req.Content == "" {
		return nil
	}
	return []string{req.Content}
}

func (h *ChatWebsocketHandler) sendPayload(conn *wsWriter, action string, payload map[string]interface{}) {
	h.sendResponse(conn, domain.WSResponse{Action: action, Success: true, Payload: payload})
}

func (h *ChatWebsocketHandler) sendError(conn *wsWriter, action, msg string) {
	h.sendResponse(conn, domain.WSResponse{Action: action, Success: false, Error: msg})
}

func (h *ChatWebsocketHandler) sendResponse(conn *wsWriter, resp domain.WSResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		logger.Log.Errorf("websocket write error:", err)
	}
}

// userMessage maps business errors to client-facing text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrGroupFull),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotMember),
		errors.Is(err, domain.ErrCodeExhausted),
		errors.Is(err, domain.ErrSend),
		errors.Is(err, domain.ErrSubscription),
		errors.Is(err, encrypt.ErrEncryption):
		return err.Error()
	default:
		return "internal error"
	}
}

func localString(conn *websocket.Conn, key string) string {
	if v, ok := conn.Locals(key).(string); ok {
		return v
	}
	return ""
}
