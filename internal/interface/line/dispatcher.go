// Package line drives attendance commands from LINE webhook events.
package line

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	appcmd "github.com/dailypractice/attendance-hub/internal/application/command"
	"github.com/dailypractice/attendance-hub/internal/application/query"
	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/internal/domain/shared"
	lineapi "github.com/dailypractice/attendance-hub/internal/infrastructure/external/line"
	"github.com/dailypractice/attendance-hub/internal/interface/line/command"
	"github.com/dailypractice/attendance-hub/internal/interface/line/presenter"
	"github.com/dailypractice/attendance-hub/pkg/logger"
	"github.com/dailypractice/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// Per event: filter, scope check, implicit capture, one command, reply.
// Events of a batch run concurrently and never fail each other.
// ══════════════════════════════════════════════════════════════════════════════

// Messenger is the slice of the LINE API the dispatcher needs.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, texts []string) error
	Push(ctx context.Context, to string, texts []string) error
	MemberProfile(ctx context.Context, chatID, userID string) (lineapi.Profile, error)
	MemberCount(ctx context.Context, chatID string) (int, error)
}

// Config tunes the dispatcher.
type Config struct {
	// Concurrency bounds events processed at once per batch (default: 8).
	Concurrency int

	// EventTimeout bounds the handling of one event (default: 20s).
	EventTimeout time.Duration

	// ChunkLimit is the reply block size in runes.
	ChunkLimit int

	// RemoveOnLeave drops departing members from the roster.
	RemoveOnLeave bool

	// MaxStatsDays caps "/stats N".
	MaxStatsDays int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:  8,
		EventTimeout: 20 * time.Second,
		ChunkLimit:   presenter.DefaultChunkLimit,
		MaxStatsDays: command.MaxStatsDays,
	}
}

// BatchSummary counts what happened to a batch.
type BatchSummary struct {
	Events  int
	Handled int
	Ignored int
	Failed  int
}

// Dispatcher routes webhook events to the attendance use cases.
type Dispatcher struct {
	config    Config
	messenger Messenger
	presenter *presenter.Presenter
	logger    *logger.Logger

	register *appcmd.RegisterMemberHandler
	markDone *appcmd.MarkDoneHandler
	capture  *appcmd.CaptureMembersHandler
	remove   *appcmd.RemoveMembersHandler
	queries  *query.Service
}

// NewDispatcher wires the use cases over store.
func NewDispatcher(
	store attendance.Store,
	calendar *timeutil.Calendar,
	collator *attendance.Collator,
	messenger Messenger,
	config Config,
	log *logger.Logger,
) *Dispatcher {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	if config.EventTimeout <= 0 {
		config.EventTimeout = 20 * time.Second
	}
	if config.MaxStatsDays <= 0 || config.MaxStatsDays > command.MaxStatsDays {
		config.MaxStatsDays = command.MaxStatsDays
	}
	if log == nil {
		log = logger.Nop()
	}

	profiles := profileLookup{messenger: messenger}
	return &Dispatcher{
		config:    config,
		messenger: messenger,
		presenter: presenter.New(config.ChunkLimit),
		logger:    log.With(logger.Component("dispatcher")),
		register:  appcmd.NewRegisterMemberHandler(store, profiles, log),
		markDone:  appcmd.NewMarkDoneHandler(store, calendar, log),
		capture:   appcmd.NewCaptureMembersHandler(store, profiles, log),
		remove:    appcmd.NewRemoveMembersHandler(store, log),
		queries: query.NewService(store, calendar, query.ServiceConfig{
			Counter:  messenger,
			Collator: collator,
			MaxDays:  config.MaxStatsDays,
			Logger:   log,
		}),
	}
}

// Queries exposes the read side for other entry points (the digest job).
func (d *Dispatcher) Queries() *query.Service { return d.queries }

// Presenter exposes the renderer used for replies.
func (d *Dispatcher) Presenter() *presenter.Presenter { return d.presenter }

// HandleBatch processes every event independently and always succeeds.
func (d *Dispatcher) HandleBatch(ctx context.Context, events []lineapi.Event) BatchSummary {
	summary := BatchSummary{Events: len(events)}
	if len(events) == 0 {
		return summary
	}

	var handled, ignored, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.config.Concurrency)

	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			evCtx, cancel := context.WithTimeout(ctx, d.config.EventTimeout)
			defer cancel()

			ok, err := d.safeHandle(evCtx, ev)
			switch {
			case err != nil:
				failed.Add(1)
				d.logger.Error("event failed",
					logger.EventType(ev.Type),
					logger.ChatID(ev.Source.ChatID()),
					logger.Err(err),
				)
			case ok:
				handled.Add(1)
			default:
				ignored.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Handled = int(handled.Load())
	summary.Ignored = int(ignored.Load())
	summary.Failed = int(failed.Load())
	return summary
}

func (d *Dispatcher) safeHandle(ctx context.Context, ev lineapi.Event) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panic recovered",
				logger.EventType(ev.Type),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			handled, err = false, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return d.handleEvent(ctx, ev)
}

// ─────────────────────────────────────────────────────────────────────────────
// EVENT STAGES
// ─────────────────────────────────────────────────────────────────────────────

func (d *Dispatcher) handleEvent(ctx context.Context, ev lineapi.Event) (bool, error) {
	// 1. filter
	switch ev.Type {
	case lineapi.EventMessage:
		if !ev.IsTextMessage() {
			return false, nil
		}
	case lineapi.EventMemberJoined, lineapi.EventMemberLeft:
	default:
		return false, nil
	}

	if ev.IsRedelivery() {
		d.logger.Debug("redelivered event", logger.EventType(ev.Type), logger.String("event_id", ev.WebhookEventID))
	}

	// 2. scope
	chatID := ev.Source.ChatID()
	if !ev.Source.IsMultiMember() {
		if ev.Type == lineapi.EventMessage && command.LooksLikeCommand(ev.Text()) {
			return true, d.send(ctx, ev, "", d.presenter.Notice(presenter.MsgDirectChat))
		}
		return false, nil
	}

	switch ev.Type {
	case lineapi.EventMemberJoined:
		d.capture.Handle(ctx, appcmd.CaptureMembersCommand{ChatID: chatID, MemberIDs: ev.Joined.UserIDs()})
		return true, nil
	case lineapi.EventMemberLeft:
		if !d.config.RemoveOnLeave {
			return false, nil
		}
		_, err := d.remove.Handle(ctx, appcmd.RemoveMembersCommand{ChatID: chatID, MemberIDs: ev.Left.UserIDs()})
		return true, err
	}

	cmd, isCommand := command.Parse(ev.Text())

	// 3. implicit capture; an explicit register writes the name itself
	if ev.Source.UserID != "" && !(isCommand && cmd.Kind == command.KindRegister) {
		d.capture.Handle(ctx, appcmd.CaptureMembersCommand{ChatID: chatID, MemberIDs: []string{ev.Source.UserID}})
	}
	if !isCommand {
		return false, nil
	}

	// 4. exactly one command
	log := d.logger.With(logger.ChatID(chatID), logger.CommandName(cmd.Kind.String()))
	start := time.Now()
	blocks, err := d.execute(ctx, chatID, ev.Source.UserID, cmd)
	if err != nil {
		blocks = d.errorBlocks(err)
		if blocks == nil {
			return true, err
		}
		log.Warn("command recovered with notice", logger.Err(err))
	}
	log.Debug("command executed", logger.Latency(time.Since(start)))

	// 5. reply
	return true, d.send(ctx, ev, chatID, blocks)
}

func (d *Dispatcher) execute(ctx context.Context, chatID, userID string, cmd command.Command) ([]string, error) {
	switch cmd.Kind {
	case command.KindRegister:
		res, err := d.register.Handle(ctx, appcmd.RegisterMemberCommand{ChatID: chatID, MemberID: userID, Name: cmd.Name})
		if err != nil {
			return nil, err
		}
		return d.presenter.Registered(res), nil

	case command.KindMarkDone:
		res, err := d.markDone.Handle(ctx, appcmd.MarkDoneCommand{ChatID: chatID, MemberID: userID})
		if err != nil {
			return nil, err
		}
		return d.presenter.MarkedDone(res), nil

	case command.KindStatus:
		res, err := d.queries.TodayStatus(ctx, chatID)
		if err != nil {
			return nil, err
		}
		return d.presenter.Status(res), nil

	case command.KindRoster:
		res, err := d.queries.Roster(ctx, chatID)
		if err != nil {
			return nil, err
		}
		return d.presenter.Roster(res), nil

	case command.KindStats:
		res, err := d.queries.Stats(ctx, query.StatsQuery{ChatID: chatID, Days: cmd.Days, Year: cmd.Year, Month: cmd.Month})
		if err != nil {
			return nil, err
		}
		return d.presenter.Stats(res), nil

	case command.KindHelp:
		return d.presenter.Help(), nil

	default:
		return nil, fmt.Errorf("unhandled command kind %d", cmd.Kind)
	}
}

// errorBlocks maps recoverable errors to user notices; nil means stay silent.
func (d *Dispatcher) errorBlocks(err error) []string {
	switch {
	case errors.Is(err, shared.ErrStoreUnavailable):
		return d.presenter.Notice(presenter.MsgStoreUnavailable)
	case errors.Is(err, shared.ErrProfileNotFound):
		return d.presenter.Notice(presenter.MsgNeedName)
	default:
		return nil
	}
}

// send replies with the first block and pushes the rest to pushTo in order.
func (d *Dispatcher) send(ctx context.Context, ev lineapi.Event, pushTo string, blocks []string) error {
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			texts = append(texts, b)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	rest := texts
	if ev.ReplyToken != "" {
		if err := d.messenger.Reply(ctx, ev.ReplyToken, texts[:1]); err != nil {
			return fmt.Errorf("reply: %w", err)
		}
		rest = texts[1:]
	}
	if len(rest) == 0 || pushTo == "" {
		return nil
	}
	if err := d.messenger.Push(ctx, pushTo, rest); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// profileLookup adapts Messenger to the use cases' ProfileLookup.
type profileLookup struct {
	messenger Messenger
}

func (p profileLookup) DisplayName(ctx context.Context, chatID, memberID string) (string, error) {
	profile, err := p.messenger.MemberProfile(ctx, chatID, memberID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(profile.DisplayName) == "" {
		return "", fmt.Errorf("empty display name: %w", shared.ErrProfileNotFound)
	}
	return profile.DisplayName, nil
}
