package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/chatcmd"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/sla"
)

const webhookTimeout = 10 * time.Second

// TelegramSender posts a Markdown message to a chat.
type TelegramSender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// BotSender sends through the Bot API. The bot is created on first use.
type BotSender struct {
	token string

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewBotSender returns a sender for token.
func NewBotSender(token string) *BotSender {
	return &BotSender{token: token}
}

// Send implements TelegramSender.
func (b *BotSender) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := b.client()
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	_, err = bot.Send(msg)
	return err
}

func (b *BotSender) client() (*tgbotapi.BotAPI, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bot != nil {
		return b.bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	b.bot = bot
	return bot, nil
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	telegram   TelegramSender
	metrics    *observability.Metrics
	loc        *time.Location
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.NotificationConfig
	Telegram   TelegramSender
	Metrics    *observability.Metrics
	Location   *time.Location
}

// NewNotificationService creates the service. Without an explicit sender a
// Bot API sender is used when a bot token is configured.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	telegram := deps.Telegram
	if telegram == nil && deps.Config.TelegramBotToken != "" {
		telegram = NewBotSender(deps.Config.TelegramBotToken)
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        deps.Config,
		telegram:   telegram,
		metrics:    deps.Metrics,
		loc:        loc,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleWebhookOnly)
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleTicketMessageAdded)
	n.dispatcher.Subscribe(events.EventShiftStarted, n.handleShift)
	n.dispatcher.Subscribe(events.EventShiftEnded, n.handleShift)
}

// NotifySLA implements SLANotifier. It fails when any configured channel fails.
func (n *NotificationService) NotifySLA(ctx context.Context, ticket domain.Ticket, level sla.Status, payload events.SLAPayload) error {
	eventType := events.EventSLAWarning
	if level == sla.StatusOverdue {
		eventType = events.EventSLAOverdue
	}
	event := events.New(eventType, ticket.OrgID, ticket.ID, nil, time.Now(), payload)

	n.sendEmailNotificationStub(ctx, event)
	return errors.Join(
		n.sendTelegram(ctx, SLAWarningMessage(payload, ticket.OrgID, n.ticketURL(ticket.ID))),
		n.sendWebhook(ctx, event),
	)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.EntityID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	var errs []error
	if p, ok := event.Payload.(events.TicketCreatedPayload); ok {
		errs = append(errs, n.sendTelegram(ctx, TicketCreatedMessage(p, event.OrgID, n.ticketURL(event.EntityID))))
	}
	errs = append(errs, n.sendWebhook(ctx, event))
	return errors.Join(errs...)
}

func (n *NotificationService) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketMessageAdded", zap.String("ticket_id", event.EntityID))
	if p, ok := event.Payload.(events.TicketMessageAddedPayload); ok && p.IsInternal {
		return nil
	}
	n.sendEmailNotificationStub(ctx, event)
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleWebhookOnly(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("entity_id", event.EntityID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleShift(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.ShiftPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	started := event.Type == events.EventShiftStarted
	return errors.Join(
		n.sendTelegram(ctx, ShiftMessage(p, started, event.OrgID, n.loc)),
		n.sendWebhook(ctx, event),
	)
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("entity_id", event.EntityID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendTelegram(ctx context.Context, text string) error {
	if n.telegram == nil || n.cfg.TelegramChatID == 0 {
		return nil
	}
	err := n.telegram.Send(ctx, n.cfg.TelegramChatID, text)
	n.metrics.RecordDelivery("telegram", err)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode webhook: %w", err)
	}

	agent := fiber.Post(n.cfg.WebhookURL)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.UserAgent("TicketDesk-Webhook/1.0")
	agent.Set("X-Webhook-Event", string(event.Type))
	agent.Set("X-Webhook-Timestamp", event.Timestamp.Format(time.RFC3339))
	if n.cfg.WebhookSecret != "" {
		agent.Set("X-Webhook-Signature", SignWebhook(n.cfg.WebhookSecret, body))
	}
	agent.Body(body)
	agent.Timeout(webhookTimeout)

	code, _, errs := agent.Bytes()
	err = errors.Join(errs...)
	if err == nil && (code < 200 || code >= 300) {
		err = fmt.Errorf("unexpected status %d", code)
	}
	n.metrics.RecordDelivery("webhook", err)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", event.Type, err)
	}
	return nil
}

func (n *NotificationService) ticketURL(ticketID string) string {
	return strings.TrimRight(n.cfg.PublicBaseURL, "/") + "/tickets/" + ticketID
}

// SignWebhook returns the signature header value for body.
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var priorityEmoji = map[domain.TicketPriority]string{
	domain.TicketPriorityLow:      "🟢",
	domain.TicketPriorityMedium:   "🟡",
	domain.TicketPriorityHigh:     "🟠",
	domain.TicketPriorityCritical: "🔴",
}

// TicketCreatedMessage renders the Telegram announcement of a new ticket.
func TicketCreatedMessage(p events.TicketCreatedPayload, org, url string) string {
	return fmt.Sprintf("🎫 *Nuovo Ticket*\n\n%s *%s*\n\n👤 Creato da: %s\n🏢 Organizzazione: %s\n⚡ Priorità: %s\n\n[Visualizza Ticket](%s)",
		priorityEmoji[p.Priority], p.Title, p.CreatedBy, org, strings.ToUpper(string(p.Priority)), url)
}

// SLAWarningMessage renders the Telegram deadline alert.
func SLAWarningMessage(p events.SLAPayload, org, url string) string {
	remaining := "SCADUTO"
	if p.HoursRemaining > 0 {
		remaining = fmt.Sprintf("%dh", p.HoursRemaining)
	}
	return fmt.Sprintf("⚠️ *SLA in Scadenza*\n\n🎫 %s\n🏢 %s\n⚡ Priorità: %s\n⏰ Tempo rimanente: %s\n\n[Gestisci Ticket](%s)",
		p.Title, org, strings.ToUpper(string(p.Priority)), remaining, url)
}

// ShiftMessage renders the Telegram announcement of a shift boundary.
func ShiftMessage(p events.ShiftPayload, started bool, org string, loc *time.Location) string {
	emoji, action := "🔴", "Turno Terminato"
	if started {
		emoji, action = "🟢", "Turno Iniziato"
	}
	msg := fmt.Sprintf("%s *%s*\n\n👤 Dipendente: %s\n🏢 Organizzazione: %s\n🕐 Orario: %s",
		emoji, action, p.EmployeeName, org, chatcmd.FormatTimestamp(p.At, loc))
	if !started && p.DurationMinutes != nil {
		msg += "\n⏱️ Durata: " + chatcmd.FormatShiftDuration(*p.DurationMinutes)
	}
	return msg
}
