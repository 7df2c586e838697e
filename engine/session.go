package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// ErrSessionClosed is returned when submitting to a closed session.
var ErrSessionClosed = errors.New("session closed")

// Persister stores player snapshots. Calls come from a background worker
// and are never awaited by the event loop.
type Persister interface {
	Persist(ctx context.Context, st *types.PlayerState) error
}

// StateLoader loads the last snapshot of a player. It returns (nil, nil)
// when the player has none.
type StateLoader interface {
	LoadState(ctx context.Context, playerID string) (*types.PlayerState, error)
}

// RewardGranter applies credits and unlocked commands outside the quest
// engine, e.g. to the terminal runtime.
type RewardGranter interface {
	Grant(ctx context.Context, playerID string, reward types.Intent) error
}

// Outcome is the result of one queued event.
type Outcome struct {
	State  *types.PlayerState
	Result types.Result
}

type queued struct {
	ev      types.Event
	restore *types.PlayerState
	done    chan Outcome
}

// Session serializes all events of one player through a single writer
// goroutine. The queue is unbounded: Submit never blocks and never drops.
type Session struct {
	id      string
	eng     *Engine
	log     *slog.Logger
	persist *persistWorker
	granter RewardGranter

	mu     sync.Mutex
	queue  []queued
	closed bool
	wake   chan struct{}
	done   chan struct{}

	current atomic.Pointer[types.PlayerState]
}

func newSession(eng *Engine, st *types.PlayerState, pw *persistWorker, g RewardGranter, log *slog.Logger) *Session {
	s := &Session{
		id:      st.PlayerID,
		eng:     eng,
		log:     log.With("player", st.PlayerID),
		persist: pw,
		granter: g,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.current.Store(st)
	go s.run()
	return s
}

// PlayerID returns the player the session belongs to.
func (s *Session) PlayerID() string { return s.id }

// State returns a copy of the latest state.
func (s *Session) State() *types.PlayerState {
	return state.Clone(s.current.Load())
}

// Submit queues an event. The returned channel receives the outcome once
// the event has been evaluated.
func (s *Session) Submit(ev types.Event) (<-chan Outcome, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	done := make(chan Outcome, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.queue = append(s.queue, queued{ev: ev, done: done})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return done, nil
}

// Restore replaces the player's state with st, in queue order. st is
// copied; its player id is forced to the session's.
func (s *Session) Restore(ctx context.Context, st *types.PlayerState) (*types.PlayerState, error) {
	if st == nil {
		return nil, errors.New("restore: nil state")
	}
	st = state.Clone(st)
	state.Ensure(st)
	st.PlayerID = s.id

	done := make(chan Outcome, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.queue = append(s.queue, queued{restore: st, done: done})
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}

	select {
	case out := <-done:
		return out.State, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do submits an event and waits for its outcome.
func (s *Session) Do(ctx context.Context, ev types.Event) (Outcome, error) {
	ch, err := s.Submit(ev)
	if err != nil {
		return Outcome{}, err
	}
	select {
	case out := <-ch:
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Close stops accepting events and waits until the queue has drained.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closed := s.closed
		s.mu.Unlock()

		for _, q := range batch {
			if q.restore != nil {
				q.done <- s.replace(q.restore)
				continue
			}
			q.done <- s.handle(q.ev)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-s.wake
	}
}

func (s *Session) handle(ev types.Event) Outcome {
	next, res := s.eng.Evaluate(s.current.Load(), ev)
	if len(res.Intents) > 0 {
		next.SnapshotAt = time.Now().UTC()
	}
	s.current.Store(next)

	if len(res.Intents) > 0 && s.persist != nil {
		s.persist.schedule(next)
	}
	if s.granter != nil {
		for _, in := range res.Intents {
			if in.Type != types.IntentGrantReward {
				continue
			}
			if err := s.granter.Grant(context.Background(), s.id, in); err != nil {
				s.log.Error("grant reward", "quest", in.QuestID, "error", err)
			}
		}
	}
	return Outcome{State: state.Clone(next), Result: res}
}

func (s *Session) replace(st *types.PlayerState) Outcome {
	st.SnapshotAt = time.Now().UTC()
	s.current.Store(st)
	if s.persist != nil {
		s.persist.schedule(st)
	}
	return Outcome{State: state.Clone(st)}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPersister stores snapshots asynchronously after every change.
func WithPersister(p Persister) ManagerOption {
	return func(m *Manager) { m.persister = p }
}

// WithStateLoader restores players from their last snapshot.
func WithStateLoader(l StateLoader) ManagerOption {
	return func(m *Manager) { m.loader = l }
}

// WithRewardGranter forwards granted rewards to an external collaborator.
func WithRewardGranter(g RewardGranter) ManagerOption {
	return func(m *Manager) { m.granter = g }
}

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// Manager owns one Session per player. Different players run in parallel.
type Manager struct {
	eng       *Engine
	persister Persister
	loader    StateLoader
	granter   RewardGranter
	log       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	starting map[string]*startup
	pw       *persistWorker
	closed   bool
}

// startup is a session whose snapshot is still loading. Concurrent callers
// for the same player wait on done.
type startup struct {
	done chan struct{}
	s    *Session
	err  error
}

// NewManager creates a session manager over an engine.
func NewManager(eng *Engine, opts ...ManagerOption) *Manager {
	m := &Manager{
		eng:      eng,
		log:      slog.New(slog.DiscardHandler),
		sessions: map[string]*Session{},
		starting: map[string]*startup{},
	}
	for _, o := range opts {
		o(m)
	}
	if m.persister != nil {
		m.pw = newPersistWorker(m.persister, m.log)
	}
	return m
}

// Session returns the player's session, starting it on first use. The
// initial state comes from the state loader if one is configured. The
// manager lock is not held while loading, so a slow snapshot load delays
// only that player.
func (m *Manager) Session(ctx context.Context, playerID string) (*Session, error) {
	if playerID == "" {
		playerID = uuid.NewString()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s, ok := m.sessions[playerID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	if su, ok := m.starting[playerID]; ok {
		m.mu.Unlock()
		select {
		case <-su.done:
			return su.s, su.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	su := &startup{done: make(chan struct{})}
	m.starting[playerID] = su
	m.mu.Unlock()

	st, err := m.loadState(ctx, playerID)

	m.mu.Lock()
	delete(m.starting, playerID)
	switch {
	case err != nil:
		su.err = err
	case m.closed:
		su.err = ErrSessionClosed
	default:
		su.s = newSession(m.eng, st, m.pw, m.granter, m.log)
		m.sessions[playerID] = su.s
	}
	m.mu.Unlock()
	close(su.done)
	return su.s, su.err
}

func (m *Manager) loadState(ctx context.Context, playerID string) (*types.PlayerState, error) {
	var st *types.PlayerState
	if m.loader != nil {
		loaded, err := m.loader.LoadState(ctx, playerID)
		if err != nil {
			return nil, err
		}
		st = loaded
	}
	if st == nil {
		st = state.NewState(playerID)
	}
	state.Ensure(st)
	st.PlayerID = playerID
	return st, nil
}

// Submit queues an event for a player, starting the session if needed.
func (m *Manager) Submit(ctx context.Context, playerID string, ev types.Event) (<-chan Outcome, error) {
	s, err := m.Session(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return s.Submit(ev)
}

// Flush waits until every scheduled snapshot has been persisted.
func (m *Manager) Flush(ctx context.Context) error {
	if m.pw == nil {
		return nil
	}
	return m.pw.flush(ctx)
}

// Close drains every session and flushes pending snapshots.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.pw != nil {
		m.pw.stop()
	}
	return errors.Join(errs...)
}

// persistWorker keeps only the latest snapshot per player and writes them
// in the background.
type persistWorker struct {
	p   Persister
	log *slog.Logger

	mu      sync.Mutex
	pending map[string]*types.PlayerState

	ch       chan struct{}
	flushCh  chan chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newPersistWorker(p Persister, log *slog.Logger) *persistWorker {
	w := &persistWorker{
		p:       p,
		log:     log,
		pending: map[string]*types.PlayerState{},
		ch:      make(chan struct{}, 1),
		flushCh: make(chan chan struct{}, 8),
		stopCh:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *persistWorker) schedule(st *types.PlayerState) {
	w.mu.Lock()
	w.pending[st.PlayerID] = st
	w.mu.Unlock()
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *persistWorker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			w.writeAll()
			return
		case <-w.ch:
			w.writeAll()
		case ack := <-w.flushCh:
			w.writeAll()
			close(ack)
		}
	}
}

func (w *persistWorker) writeAll() {
	w.mu.Lock()
	batch := w.pending
	w.pending = map[string]*types.PlayerState{}
	w.mu.Unlock()

	for id, st := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.p.Persist(ctx, st); err != nil {
			w.log.Error("persist snapshot", "player", id, "error", err)
		}
		cancel()
	}
}

func (w *persistWorker) flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flushCh <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *persistWorker) stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
	})
}
