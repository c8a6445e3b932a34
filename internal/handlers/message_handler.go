package handlers

import (
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/events"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/validate"
)

// inboxScan bounds how many recent messages the inbox groups into threads.
const inboxScan = 500

type MessageHandler struct {
	DB     *gorm.DB
	Hub    *realtime.Hub
	Notify *Notifications
	Events events.Publisher
	Log    zerolog.Logger
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
	ProjectID  string `json:"project_id" validate:"omitempty,uuid"`
	Content    string `json:"content" validate:"required,max=5000"`
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validate.Struct(req); err != nil {
		return err
	}
	receiverID := uuid.MustParse(req.ReceiverID)
	if receiverID == actor.ID {
		return apperr.Field("receiver_id", "cannot message yourself")
	}

	tx := h.DB.WithContext(c.UserContext())
	var receiver models.User
	if err := tx.First(&receiver, "id = ? AND is_active = ?", receiverID, true).Error; err != nil {
		return db.Lookup(err, "load receiver", "recipient not found")
	}

	msg := models.Message{SenderID: actor.ID, ReceiverID: receiverID, Content: req.Content}
	if req.ProjectID != "" {
		projectID := uuid.MustParse(req.ProjectID)
		if err := h.checkProjectAccess(c, actor, projectID); err != nil {
			return err
		}
		msg.ProjectID = &projectID
	}

	if err := tx.Create(&msg).Error; err != nil {
		return db.Wrap(err, "create message")
	}
	if err := tx.Preload("Sender").First(&msg, "id = ?", msg.ID).Error; err != nil {
		return db.Wrap(err, "reload message")
	}

	view := viewMessage(&msg)
	h.Notify.Send(c.UserContext(), receiverID, "message.new", view)
	// the sender's other tabs
	h.Notify.Send(c.UserContext(), actor.ID, "message.sent", view)
	events.Emit(c.UserContext(), h.Events, h.Log, events.MessageSent, fiber.Map{
		"message_id":  msg.ID,
		"sender_id":   msg.SenderID,
		"receiver_id": msg.ReceiverID,
		"project_id":  msg.ProjectID,
	})
	return created(c, view)
}

// checkProjectAccess allows project-linked messages from the owner, the
// assigned freelancer, anyone who has bid on it, or an admin.
func (h *MessageHandler) checkProjectAccess(c *fiber.Ctx, actor models.Actor, projectID uuid.UUID) error {
	tx := h.DB.WithContext(c.UserContext())
	var p models.Project
	if err := tx.First(&p, "id = ?", projectID).Error; err != nil {
		return db.Lookup(err, "load project", "project not found")
	}
	if actor.IsAdmin() || p.IsParticipant(actor.ID) {
		return nil
	}
	var bids int64
	if err := tx.Model(&models.Proposal{}).
		Where("project_id = ? AND freelancer_id = ?", projectID, actor.ID).
		Count(&bids).Error; err != nil {
		return db.Wrap(err, "check proposal")
	}
	if bids == 0 {
		return apperr.Forbidden("not a participant of this project")
	}
	return nil
}

// List returns the thread with ?with=<user id> (optionally narrowed by
// ?project_id=) or, without it, the inbox: the latest message and unread
// count per counterpart, newest first.
func (h *MessageHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if with := c.Query("with"); with != "" {
		otherID, err := uuid.Parse(with)
		if err != nil {
			return apperr.Field("with", "must be a valid UUID")
		}
		return h.thread(c, actor, otherID)
	}
	return h.inbox(c, actor)
}

func (h *MessageHandler) thread(c *fiber.Ctx, actor models.Actor, otherID uuid.UUID) error {
	paging := pagingFrom(c)
	q := h.DB.WithContext(c.UserContext()).Model(&models.Message{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			actor.ID, otherID, otherID, actor.ID)
	if pid := c.Query("project_id"); pid != "" {
		projectID, err := uuid.Parse(pid)
		if err != nil {
			return apperr.Field("project_id", "must be a valid UUID")
		}
		q = q.Where("project_id = ?", projectID)
	}

	// opening a thread reads everything the other side sent
	if err := h.DB.WithContext(c.UserContext()).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, actor.ID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now()}).Error; err != nil {
		return db.Wrap(err, "mark thread read")
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return db.Wrap(err, "count messages")
	}

	// newest page first, returned in chronological order
	var items []models.Message
	if err := q.Preload("Sender").
		Order("created_at DESC").
		Offset(paging.Offset()).Limit(paging.Limit).
		Find(&items).Error; err != nil {
		return db.Wrap(err, "list messages")
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return ok(c, paged(viewMessages(items), total, paging))
}

type conversationView struct {
	With        *models.UserMini `json:"with"`
	LastMessage messageView      `json:"last_message"`
	UnreadCount int64            `json:"unread_count"`
}

func (h *MessageHandler) inbox(c *fiber.Ctx, actor models.Actor) error {
	tx := h.DB.WithContext(c.UserContext())

	var recent []models.Message
	if err := tx.Preload("Sender").
		Where("sender_id = ? OR receiver_id = ?", actor.ID, actor.ID).
		Order("created_at DESC").
		Limit(inboxScan).
		Find(&recent).Error; err != nil {
		return db.Wrap(err, "list inbox")
	}

	var unread []struct {
		SenderID uuid.UUID
		Count    int64
	}
	if err := tx.Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND is_read = ?", actor.ID, false).
		Group("sender_id").
		Scan(&unread).Error; err != nil {
		return db.Wrap(err, "count unread")
	}
	unreadBy := make(map[uuid.UUID]int64, len(unread))
	for _, u := range unread {
		unreadBy[u.SenderID] = u.Count
	}

	latest := map[uuid.UUID]int{}
	var order []uuid.UUID
	for i, m := range recent {
		other := m.ReceiverID
		if other == actor.ID {
			other = m.SenderID
		}
		if _, seen := latest[other]; !seen {
			latest[other] = i
			order = append(order, other)
		}
	}

	var users []models.User
	if len(order) > 0 {
		if err := tx.Where("id IN ?", order).Find(&users).Error; err != nil {
			return db.Wrap(err, "load counterparts")
		}
	}
	byID := make(map[uuid.UUID]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	out := make([]conversationView, 0, len(order))
	for _, other := range order {
		out = append(out, conversationView{
			With:        byID[other].Mini(),
			LastMessage: viewMessage(&recent[latest[other]]),
			UnreadCount: unreadBy[other],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return ok(c, out)
}

func (h *MessageHandler) UnreadCount(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var count int64
	if err := h.DB.WithContext(c.UserContext()).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", actor.ID, false).
		Count(&count).Error; err != nil {
		return db.Wrap(err, "count unread")
	}
	return ok(c, fiber.Map{"count": count})
}

// MarkRead is only allowed for the receiver and is idempotent.
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	tx := h.DB.WithContext(c.UserContext())
	var msg models.Message
	if err := tx.First(&msg, "id = ?", id).Error; err != nil {
		return db.Lookup(err, "load message", "message not found")
	}
	if msg.ReceiverID != actor.ID {
		return apperr.Forbidden("only the receiver can mark a message as read")
	}
	if !msg.IsRead {
		now := time.Now()
		if err := tx.Model(&msg).Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
			return db.Wrap(err, "mark read")
		}
		h.Notify.Send(c.UserContext(), msg.SenderID, "message.read", fiber.Map{"message_id": msg.ID, "read_at": now})
	}
	if err := tx.Preload("Sender").First(&msg, "id = ?", id).Error; err != nil {
		return db.Wrap(err, "reload message")
	}
	return ok(c, viewMessage(&msg))
}

// Upgrade rejects non-websocket requests before the websocket handler runs.
func (h *MessageHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// Stream serves GET /ws/messages. The session middleware has already
// authenticated the upgrade request; its identity is copied onto the conn.
func (h *MessageHandler) Stream(conn *websocket.Conn) {
	id, ok := conn.Locals(middleware.IdentityLocal).(middleware.Identity)
	if !ok || id.UserID == uuid.Nil {
		h.Log.Warn().Msg("websocket without identity")
		_ = conn.Close()
		return
	}
	h.Hub.Serve(conn, id.UserID)
}
