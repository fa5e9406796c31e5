package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kanad/internal/assistant"
	"kanad/internal/domain"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// Telegram drives follow-up turns on one configured workspace over a
// long-poll bot. Each incoming text message becomes a follow-up; the final
// transcript message is delivered when the stream ends.
type Telegram struct {
	token     string
	workspace domain.Workspace
	allowFrom []int64 // Allowed user IDs (empty = allow all)

	bot    *tgbotapi.BotAPI
	orch   *assistant.Orchestrator
	logger *slog.Logger
}

type TelegramChannelConfig struct {
	Token        string
	Workspace    string
	AllowFrom    []string // User IDs as strings
	Orchestrator *assistant.Orchestrator
	Logger       *slog.Logger
}

func NewTelegram(cfg TelegramChannelConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	ws := domain.Workspace(cfg.Workspace)
	if !ws.Valid() {
		ws = domain.WorkspaceRnd
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		token:     cfg.Token,
		workspace: ws,
		allowFrom: allowed,
		orch:      cfg.Orchestrator,
		logger:    logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"workspace", t.workspace,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled.
func (t *Telegram) Stop() error {
	return nil
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", update.Message.From.UserName,
		)
		t.sendMessage(chatID, "⛔ Unauthorized. Your user ID is not in the allow list.")
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	if update.Message.IsCommand() {
		t.handleCommand(chatID, update.Message)
		return
	}

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	if err := t.orch.FollowUp(ctx, t.workspace, text); err != nil {
		t.logger.Warn("telegram follow-up rejected", "err", err)
		t.sendMessage(chatID, "⏳ A response is still being generated. Please wait.")
		return
	}

	if last, ok := trailingModel(t.orch.Session(t.workspace)); ok {
		reply := last.Content
		if len(last.GroundingSources) > 0 {
			var b strings.Builder
			b.WriteString(reply)
			b.WriteString("\n\nSources:")
			for _, s := range last.GroundingSources {
				fmt.Fprintf(&b, "\n• %s — %s", s.Title, s.URI)
			}
			reply = b.String()
		}
		t.sendMessage(chatID, reply)
	}
}

func trailingModel(msgs []domain.Message) (domain.Message, bool) {
	if len(msgs) == 0 {
		return domain.Message{}, false
	}
	last := msgs[len(msgs)-1]
	if last.Role != domain.RoleModel || last.Content == "" {
		return domain.Message{}, false
	}
	return last, true
}

func (t *Telegram) handleCommand(chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.sendMessage(chatID, fmt.Sprintf("👋 Hello! I'm KANAD, your AI research buddy.\n\nThis chat is connected to the %s workspace. Just send me a message.\n\nCommands:\n/new — Start a new conversation\n/status — Show status", t.workspace))
	case "new":
		t.orch.NewChat(t.workspace)
		t.sendMessage(chatID, "🗑 Conversation archived. Starting fresh.")
	case "status":
		t.sendMessage(chatID, fmt.Sprintf("🟢 KANAD\n\nBot: @%s\nWorkspace: %s\nMessages: %d", t.bot.Self.UserName, t.workspace, len(t.orch.Session(t.workspace))))
	default:
		t.sendMessage(chatID, "Unknown command. Try /new or /status.")
	}
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// sendMessage splits long replies to fit Telegram's per-message limit.
func (t *Telegram) sendMessage(chatID int64, text string) {
	for _, chunk := range splitMessage(text, telegramMaxMsgLen) {
		t.sendChunk(chatID, chunk)
	}
}

// splitMessage cuts text into chunks of at most maxLen bytes, preferring
// newlines and never splitting a rune.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := strings.LastIndex(text[:maxLen], "\n")
		if cutAt < maxLen/2 {
			cutAt = maxLen
			for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
				cutAt--
			}
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

func (t *Telegram) sendChunk(chatID int64, text string) {
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		if strings.Contains(err.Error(), "Too Many Requests") || strings.Contains(err.Error(), "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off", "retry_after", retryAfter)
			time.Sleep(retryAfter)
			continue
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}
		t.logger.Error("telegram send failed after retries", "err", err)
	}
}
