package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gratefultolord/insurance_bot/internal/metrics"
	"github.com/gratefultolord/insurance_bot/internal/models"
	"github.com/gratefultolord/insurance_bot/internal/state"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

const defaultExtractionTimeout = 2 * time.Minute

type Dependencies struct {
	Messenger    Messenger
	Store        state.Store
	Files        Files
	Extractor    Extractor
	Copywriter   TextGenerator
	PolicyWriter TextGenerator
	Renderer     Renderer

	// Optional.
	Ledger  PolicyLedger
	Metrics *metrics.Metrics

	PriceUSD          int
	ExtractionTimeout time.Duration

	Now             func() time.Time
	NewPolicyNumber func() string
}

// Controller drives the purchase flow of every user. Handle must not be called
// concurrently for the same user.
type Controller struct {
	messenger    Messenger
	store        state.Store
	files        Files
	extractor    Extractor
	copywriter   TextGenerator
	policyWriter TextGenerator
	renderer     Renderer
	ledger       PolicyLedger
	metrics      *metrics.Metrics

	priceUSD          int
	extractionTimeout time.Duration

	now             func() time.Time
	newPolicyNumber func() string
}

func New(deps Dependencies) (*Controller, error) {
	switch {
	case deps.Messenger == nil:
		return nil, errors.New("conversation.New: messenger is required")
	case deps.Store == nil:
		return nil, errors.New("conversation.New: store is required")
	case deps.Files == nil:
		return nil, errors.New("conversation.New: files are required")
	case deps.Extractor == nil:
		return nil, errors.New("conversation.New: extractor is required")
	case deps.Copywriter == nil || deps.PolicyWriter == nil:
		return nil, errors.New("conversation.New: text generators are required")
	case deps.Renderer == nil:
		return nil, errors.New("conversation.New: renderer is required")
	case deps.PriceUSD <= 0:
		return nil, errors.New("conversation.New: price must be positive")
	}

	c := &Controller{
		messenger:         deps.Messenger,
		store:             deps.Store,
		files:             deps.Files,
		extractor:         deps.Extractor,
		copywriter:        deps.Copywriter,
		policyWriter:      deps.PolicyWriter,
		renderer:          deps.Renderer,
		ledger:            deps.Ledger,
		metrics:           deps.Metrics,
		priceUSD:          deps.PriceUSD,
		extractionTimeout: deps.ExtractionTimeout,
		now:               deps.Now,
		newPolicyNumber:   deps.NewPolicyNumber,
	}
	if c.extractionTimeout <= 0 {
		c.extractionTimeout = defaultExtractionTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newPolicyNumber == nil {
		c.newPolicyNumber = uuid.NewString
	}

	return c, nil
}

// Handle processes one event for its user and persists the resulting session.
func (c *Controller) Handle(ctx context.Context, ev Event) {
	c.metrics.IncrementEvent(ev.Kind.String())

	sess, err := c.store.Get(ctx, ev.UserID)
	if err != nil {
		logx.Error().Err(err).Int64("user_id", ev.UserID).Msg("failed to load session")
		if ev.Kind == EventCallback {
			c.answer(ev.CallbackID, "")
		}
		c.sendText(ev.ChatID, textTryAgain)
		return
	}

	before := sess.State
	if !c.dispatch(ctx, ev, &sess) {
		return
	}

	if err := c.store.Save(ctx, ev.UserID, sess); err != nil {
		logx.Error().Err(err).Int64("user_id", ev.UserID).Str("state", string(sess.State)).Msg("failed to save session")
		return
	}

	if before != sess.State {
		logx.Info().Int64("user_id", ev.UserID).Str("from", string(before)).Str("to", string(sess.State)).Msg("state changed")
	}
}

// dispatch mutates sess and reports whether it has to be saved.
func (c *Controller) dispatch(ctx context.Context, ev Event, sess *models.Session) bool {
	switch {
	case ev.Kind == EventCommand && ev.Command == CommandStart:
		c.handleStartCommand(ctx, ev.UserID, ev.ChatID)
		return false
	case ev.Kind == EventText && ev.Text == StartButton:
		c.handleStartButton(ctx, ev.ChatID, sess)
		return true
	case ev.Kind == EventCallback:
		return c.handleCallback(ctx, ev, sess)
	case sess.State.GeneratesPolicy():
		return c.deliverPolicy(ctx, ev.UserID, ev.ChatID, sess)
	case ev.Kind == EventPhoto:
		return c.handlePhoto(ctx, ev, sess)
	default:
		c.handleOther(ctx, ev, sess)
		return false
	}
}

func (c *Controller) handleStartCommand(ctx context.Context, userID, chatID int64) {
	welcome := promptWelcome
	if n := c.issuedPolicies(ctx, userID); n > 0 {
		welcome = welcomeBack(n)
	}

	text := c.compose(ctx, welcome)
	if err := c.messenger.SendReplyKeyboard(chatID, text, StartButton); err != nil {
		logx.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send welcome")
	}
}

// issuedPolicies returns 0 when the ledger is disabled or unavailable.
func (c *Controller) issuedPolicies(ctx context.Context, userID int64) int {
	if c.ledger == nil {
		return 0
	}

	n, err := c.ledger.CountByTelegramUserID(ctx, userID)
	if err != nil {
		logx.Warn().Err(err).Int64("user_id", userID).Msg("failed to count issued policies")
		return 0
	}
	return n
}

func (c *Controller) handleStartButton(ctx context.Context, chatID int64, sess *models.Session) {
	*sess = models.Session{State: models.StateAwaitingPassport}
	c.sendText(chatID, c.compose(ctx, promptPassportRequest))
}

func (c *Controller) handleOther(ctx context.Context, ev Event, sess *models.Session) {
	var reminder prompt

	switch sess.State {
	case models.StateAwaitingPassport:
		reminder = promptRemindPassport
	case models.StateAwaitingVehiclePlate:
		reminder = promptRemindPlate
	case models.StateAwaitingVehicleVIN:
		reminder = promptRemindVIN
	default:
		logx.Debug().Int64("user_id", ev.UserID).Str("state", string(sess.State)).Str("kind", ev.Kind.String()).Msg("ignored message")
		return
	}

	c.sendText(ev.ChatID, c.compose(ctx, reminder))
}

// compose asks the copywriter for text and falls back to the literal copy on any failure.
func (c *Controller) compose(ctx context.Context, p prompt) string {
	text, err := c.copywriter.Generate(ctx, agentPersona, p.instruction)
	if err != nil || text == "" {
		if err != nil && !errors.Is(err, context.Canceled) {
			logx.Warn().Err(err).Msg("copywriter failed - using fallback text")
		}
		return p.fallback
	}
	return text
}

func (c *Controller) sendText(chatID int64, text string) {
	if err := c.messenger.SendText(chatID, text); err != nil {
		logx.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (c *Controller) sendButtons(chatID int64, text string, buttons ...Button) {
	if err := c.messenger.SendInlineButtons(chatID, text, buttons...); err != nil {
		logx.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send buttons")
	}
}

func (c *Controller) editText(chatID int64, messageID int, text string) {
	if err := c.messenger.EditText(chatID, messageID, text); err != nil {
		logx.Error().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("failed to edit message")
	}
}

func (c *Controller) answer(callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := c.messenger.AnswerCallback(callbackID, text); err != nil {
		logx.Error().Err(err).Msg("failed to answer callback")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
