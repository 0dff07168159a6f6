// Package failover composes a remote attendance store with an in-memory fallback.
package failover

import (
	"context"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/pkg/circuitbreaker"
	"github.com/dailypractice/attendance-hub/pkg/logger"
)

// Store routes every call to the primary store through a circuit breaker and
// serves it from the fallback when the primary fails or the breaker is open.
// Callers see a single attendance.Store.
type Store struct {
	primary  attendance.Store
	fallback attendance.Store
	breaker  *circuitbreaker.CircuitBreaker
	log      *logger.Logger
}

var _ attendance.Store = (*Store)(nil)

// New builds a failover store.
func New(primary, fallback attendance.Store, breaker *circuitbreaker.CircuitBreaker, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		log:      log.With(logger.Component("failover-store")),
	}
}

func (s *Store) run(ctx context.Context, op string, primary, fallback func(context.Context, attendance.Store) error) error {
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return primary(ctx, s.primary)
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	if !circuitbreaker.IsRejected(err) {
		s.log.Warn("primary store failed, using fallback",
			logger.Operation(op),
			logger.Err(err),
		)
	}
	return fallback(ctx, s.fallback)
}

func (s *Store) UpsertMember(ctx context.Context, chatID string, member attendance.Member) error {
	f := func(ctx context.Context, st attendance.Store) error {
		return st.UpsertMember(ctx, chatID, member)
	}
	return s.run(ctx, "UpsertMember", f, f)
}

func (s *Store) HasMember(ctx context.Context, chatID, memberID string) (bool, error) {
	var ok bool
	f := func(ctx context.Context, st attendance.Store) error {
		var err error
		ok, err = st.HasMember(ctx, chatID, memberID)
		return err
	}
	err := s.run(ctx, "HasMember", f, f)
	return ok, err
}

func (s *Store) RemoveMember(ctx context.Context, chatID, memberID string) error {
	f := func(ctx context.Context, st attendance.Store) error {
		return st.RemoveMember(ctx, chatID, memberID)
	}
	return s.run(ctx, "RemoveMember", f, f)
}

func (s *Store) ListMembers(ctx context.Context, chatID string) ([]attendance.Member, error) {
	var members []attendance.Member
	f := func(ctx context.Context, st attendance.Store) error {
		var err error
		members, err = st.ListMembers(ctx, chatID)
		return err
	}
	err := s.run(ctx, "ListMembers", f, f)
	return members, err
}

func (s *Store) MarkComplete(ctx context.Context, chatID, dateKey, memberID string) error {
	f := func(ctx context.Context, st attendance.Store) error {
		return st.MarkComplete(ctx, chatID, dateKey, memberID)
	}
	return s.run(ctx, "MarkComplete", f, f)
}

func (s *Store) CompletedIDs(ctx context.Context, chatID, dateKey string) (attendance.IDSet, error) {
	var set attendance.IDSet
	f := func(ctx context.Context, st attendance.Store) error {
		var err error
		set, err = st.CompletedIDs(ctx, chatID, dateKey)
		return err
	}
	err := s.run(ctx, "CompletedIDs", f, f)
	return set, err
}

func (s *Store) CompletedIDsByDate(ctx context.Context, chatID string, dateKeys []string) (map[string]attendance.IDSet, error) {
	var sets map[string]attendance.IDSet
	f := func(ctx context.Context, st attendance.Store) error {
		var err error
		sets, err = st.CompletedIDsByDate(ctx, chatID, dateKeys)
		return err
	}
	err := s.run(ctx, "CompletedIDsByDate", f, f)
	return sets, err
}

// Ping reports the primary's health. The fallback is not consulted.
func (s *Store) Ping(ctx context.Context) error {
	return s.primary.Ping(ctx)
}

// Breaker exposes the breaker state for health reporting.
func (s *Store) Breaker() *circuitbreaker.CircuitBreaker {
	return s.breaker
}
