package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"magistrant/internal/charts"
	"magistrant/internal/components/assert"
	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"

	"github.com/antzucaro/matchr"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/semaphore"
)

const (
	report_bot_poll    = "bot.poll"
	report_bot_send    = "bot.send"
	report_bot_delete  = "bot.delete-password"
	report_bot_charts  = "bot.charts"
	report_bot_updates = "bot.updates"
)

const (
	commandStart  = "/start"
	commandPlan   = "/plan"
	commandCancel = "/cancel"
)

var commands = []string{commandStart, commandPlan, commandCancel}

// suggestionThreshold is the smallest Jaro-Winkler similarity for which an
// unknown command is answered with a "did you mean".
const suggestionThreshold = 0.8

// Messenger is the subset of the Bot API the bot replies through.
type Messenger interface {
	SendMessage(ctx context.Context, chatId int64, text string) error
	SendPhoto(ctx context.Context, chatId int64, filename string, image []byte, caption string) error
	DeleteMessage(ctx context.Context, chatId, messageId int64) error
}

// Updater is where the bot receives updates from.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// PlanAPI fetches the curriculum of a user's term.
type PlanAPI interface {
	GetPlan(ctx context.Context, userKey, password string, term int) ([]curriculum.Record, error)
}

type dialogStep int

const (
	stepLogin dialogStep = iota
	stepPassword
	stepTerm
)

type dialog struct {
	step     dialogStep
	login    string
	password string
}

type BotOptions struct {
	Messenger Messenger
	Plans     PlanAPI
	Config    Config
	Tel       telemetry.API
}

// Bot runs the /plan conversation of every chat.
type Bot struct {
	messenger Messenger
	plans     PlanAPI
	config    Config
	tel       telemetry.API

	dialogs  *expirable.LRU[int64, dialog]
	dialogMu sync.Mutex
	plansSem *semaphore.Weighted
	inflight sync.WaitGroup
}

func NewBot(opts BotOptions) *Bot {
	assert.NotNil(opts.Messenger)
	assert.NotNil(opts.Plans)
	assert.NotNil(opts.Tel)
	opts.Config.FillDefaults()
	assert.Positive("max_concurrent_plans", opts.Config.MaxConcurrentPlans)
	assert.Positive("dialog_ttl_seconds", opts.Config.DialogTtlSeconds)

	return &Bot{
		messenger: opts.Messenger,
		plans:     opts.Plans,
		config:    opts.Config,
		tel:       telemetry.NewScopedAPI("telegram_bot", opts.Tel),
		dialogs:   expirable.NewLRU[int64, dialog](4096, nil, opts.Config.dialogTtl()),
		plansSem:  semaphore.NewWeighted(opts.Config.MaxConcurrentPlans),
	}
}

// Run long polls updates until ctx is cancelled, then waits for the plans
// still being fetched.
func (b *Bot) Run(ctx context.Context, updater Updater) error {
	defer b.Wait()

	var offset int64
	for {
		updates, err := updater.GetUpdates(ctx, offset, b.config.PollTimeout())
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			b.tel.ReportBroken(report_bot_poll, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		b.tel.ReportCount(report_bot_updates, int64(len(updates)))
		for _, update := range updates {
			if update.UpdateId >= offset {
				offset = update.UpdateId + 1
			}
			b.Handle(ctx, update)
		}
	}
}

// Wait blocks until every plan request started by Handle has been answered.
func (b *Bot) Wait() {
	b.inflight.Wait()
}

func (b *Bot) reply(ctx context.Context, chatId int64, text string) {
	err := b.messenger.SendMessage(ctx, chatId, text)
	if err != nil {
		b.tel.ReportBroken(report_bot_send, err, chatId)
	}
}

// Handle reacts to a single update, fetching a plan happens in the
// background.
func (b *Bot) Handle(ctx context.Context, update Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	chatId := msg.Chat.Id

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatId, text)
		return
	}

	b.dialogMu.Lock()
	state, ok := b.dialogs.Get(chatId)
	if !ok {
		b.dialogMu.Unlock()
		b.reply(ctx, chatId, textNoDialog)
		return
	}

	switch state.step {
	case stepLogin:
		state.login = text
		state.step = stepPassword
		b.dialogs.Add(chatId, state)
		b.dialogMu.Unlock()
		b.reply(ctx, chatId, textAskPassword)

	case stepPassword:
		state.password = msg.Text
		state.step = stepTerm
		b.dialogs.Add(chatId, state)
		b.dialogMu.Unlock()

		err := b.messenger.DeleteMessage(ctx, chatId, msg.MessageId)
		if err != nil {
			b.tel.ReportWarning(report_bot_delete, err, chatId)
		}
		b.reply(ctx, chatId, textAskTerm)

	case stepTerm:
		term, err := strconv.Atoi(text)
		if err != nil || !curriculum.ValidTerm(term) {
			b.dialogMu.Unlock()
			b.reply(ctx, chatId, textInvalidTerm)
			return
		}
		b.dialogs.Remove(chatId)
		b.dialogMu.Unlock()

		b.reply(ctx, chatId, textWait)
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()
			b.sendPlan(ctx, chatId, state.login, state.password, term)
		}()

	default:
		b.dialogMu.Unlock()
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatId int64, text string) {
	command := strings.Fields(text)[0]
	// commands in group chats are addressed as /plan@botname
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	command = strings.ToLower(command)

	switch command {
	case commandStart:
		b.reply(ctx, chatId, textWelcome)
	case commandPlan:
		b.dialogMu.Lock()
		b.dialogs.Add(chatId, dialog{step: stepLogin})
		b.dialogMu.Unlock()
		b.reply(ctx, chatId, textAskLogin)
	case commandCancel:
		b.dialogMu.Lock()
		removed := b.dialogs.Remove(chatId)
		b.dialogMu.Unlock()
		if removed {
			b.reply(ctx, chatId, textCancelled)
			return
		}
		b.reply(ctx, chatId, textNothingToCancel)
	default:
		suggestion := closestCommand(command)
		if suggestion != "" {
			b.reply(ctx, chatId, suggestCommand(suggestion))
			return
		}
		b.reply(ctx, chatId, textUnknownCommand)
	}
}

// closestCommand returns the known command most similar to input, or an
// empty string when none is similar enough.
func closestCommand(input string) string {
	best := ""
	bestScore := 0.0
	for _, command := range commands {
		score := matchr.JaroWinkler(input, command, false)
		if score > bestScore {
			best = command
			bestScore = score
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}

func (b *Bot) sendPlan(ctx context.Context, chatId int64, login, password string, term int) {
	err := b.plansSem.Acquire(ctx, 1)
	if err != nil {
		b.reply(context.WithoutCancel(ctx), chatId, textBusy)
		return
	}
	defer b.plansSem.Release(1)

	records, err := b.plans.GetPlan(ctx, login, password, term)
	if err != nil {
		b.tel.ReportDebug("plan failed", "chat", chatId, "term", term, "err", err)
		b.reply(context.WithoutCancel(ctx), chatId, failureText(err))
		return
	}
	if len(records) == 0 {
		b.reply(ctx, chatId, textNoData)
		return
	}

	b.reply(ctx, chatId, summary(records, term))

	bar, err := charts.HoursBar(records, term)
	if err != nil {
		b.tel.ReportBroken(report_bot_charts, err)
	} else {
		b.sendPhoto(ctx, chatId, fmt.Sprintf("plan-%d.png", term), bar)
	}

	if len(records) < 2 {
		return
	}
	curve, err := charts.HoursCurve(records)
	if err != nil {
		b.tel.ReportBroken(report_bot_charts, err)
		return
	}
	b.sendPhoto(ctx, chatId, fmt.Sprintf("plan-%d-curve.png", term), curve)
}

func (b *Bot) sendPhoto(ctx context.Context, chatId int64, filename string, image []byte) {
	err := b.messenger.SendPhoto(ctx, chatId, filename, image, "")
	if err != nil {
		b.tel.ReportBroken(report_bot_send, err, chatId)
	}
}
