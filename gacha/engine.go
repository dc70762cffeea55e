package gacha

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bitfsorg/libgacha-go/identity"
)

const tracerName = "github.com/bitfsorg/libgacha-go/gacha"

// Engine executes pool commands. Commands are serialized: each one loads the
// pool, checks every precondition on a private copy, performs its external
// calls, and only then commits the pool, the pull request and the audit
// events in one Store batch. A failed command writes nothing.
type Engine struct {
	store    Store
	clock    Clock
	payments PaymentBackend

	maxSlotDiff uint64
	sources     map[string]RandomnessSource
	observers   []Observer
	log         logr.Logger
	tracer      trace.Tracer
	newID       func() string
	now         func() time.Time

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSlotDifference sets how stale a randomness commitment may be at pull time.
func WithMaxSlotDifference(n uint64) Option {
	return func(e *Engine) { e.maxSlotDiff = n }
}

// WithSources registers randomness sources by ID. See RegisterSource.
func WithSources(srcs ...RandomnessSource) Option {
	return func(e *Engine) {
		for _, src := range srcs {
			if src != nil {
				e.sources[src.ID()] = src
			}
		}
	}
}

// WithObservers appends observers notified after every command.
func WithObservers(obs ...Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, obs...) }
}

// WithLogger sets the engine logger. The default discards.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithIDGenerator overrides UUIDv7 event IDs.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithTimeSource overrides the wall clock stamped on events.
func WithTimeSource(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// New returns an Engine over store. payments may be nil for engines that
// never accept pulls.
func New(store Store, clock Clock, payments PaymentBackend, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		clock:       clock,
		payments:    payments,
		maxSlotDiff: DefaultMaxSlotDifference,
		sources:     make(map[string]RandomnessSource),
		log:         logr.Discard(),
		tracer:      otel.Tracer(tracerName),
		newID:       newEventID,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// txn is the working state of one command.
type txn struct {
	e     *Engine
	pool  *Pool
	slot  uint64
	actor identity.ID
	batch Batch
}

func (t *txn) emit(kind EventKind, payload any) {
	t.pool.eventSeq++
	t.batch.Events = append(t.batch.Events, Event{
		ID:      t.e.newID(),
		Pool:    t.pool.ID,
		Seq:     t.pool.eventSeq,
		Kind:    kind,
		Actor:   t.actor,
		Slot:    t.slot,
		At:      t.e.now().UTC(),
		Payload: payload,
	})
}

// run executes fn against a private copy of pool id and commits the result.
// load is nil for every command except CreatePool.
func (e *Engine) run(ctx context.Context, op Op, id PoolID, actor identity.ID,
	load func(ctx context.Context) (*Pool, error), fn func(ctx context.Context, t *txn) error) (err error) {
	ctx, span := e.tracer.Start(ctx, "gacha."+string(op), trace.WithAttributes(
		attribute.String("gacha.op", string(op)),
		attribute.Int64("gacha.pool", int64(id)),
	))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var t *txn
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, CodeOf(err))
			if t != nil {
				id = t.pool.ID
			}
			e.log.V(1).Info("command rejected", "op", op, "pool", id, "code", CodeOf(err), "error", err.Error())
			for _, o := range e.observers {
				o.Rejected(ctx, op, id, err)
			}
		}
	}()

	slot, err := e.clock.Slot(ctx)
	if err != nil {
		return fmt.Errorf("gacha: read clock: %w", err)
	}

	if load == nil {
		load = func(ctx context.Context) (*Pool, error) { return e.store.Pool(ctx, id) }
	}
	pool, err := load(ctx)
	if err != nil {
		return err
	}

	t = &txn{e: e, pool: pool, slot: slot, actor: actor}
	if err := fn(ctx, t); err != nil {
		return err
	}

	t.batch.Pool = t.pool
	if err := e.store.Commit(ctx, &t.batch); err != nil {
		return fmt.Errorf("gacha: commit %s: %w", op, err)
	}

	span.SetAttributes(attribute.Int("gacha.events", len(t.batch.Events)))
	e.log.V(1).Info("command committed", "op", op, "pool", t.pool.ID, "events", len(t.batch.Events), "slot", slot)
	for _, o := range e.observers {
		o.Committed(ctx, t.batch.Events)
	}
	return nil
}

// CreatePool registers a new pool owned by admin and returns its ID.
func (e *Engine) CreatePool(ctx context.Context, admin identity.ID) (PoolID, error) {
	var id PoolID
	load := func(ctx context.Context) (*Pool, error) {
		if admin.IsZero() {
			return nil, fmt.Errorf("%w: admin", ErrInvalidIdentity)
		}
		n, err := e.store.PoolCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("gacha: read pool count: %w", err)
		}
		id = PoolID(n + 1)
		return NewPool(id, admin), nil
	}
	err := e.run(ctx, OpCreatePool, 0, admin, load, func(_ context.Context, t *txn) error {
		t.batch.Create = true
		t.emit(EventPoolInitialized, PoolInitialized{Admin: admin})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// PullParams are the inputs of Pull.
type PullParams struct {
	Pool      PoolID
	Requester identity.ID
	Method    MethodID
	// Source is the ID of a registered randomness source.
	Source string
	// Proof is passed to the payment backend unchanged.
	Proof []byte
}

// Pull pays for and records a pull request committed to the source's current
// randomness slot. The returned request is pending until Settle.
func (e *Engine) Pull(ctx context.Context, p PullParams) (*PullRequest, error) {
	var req *PullRequest
	err := e.run(ctx, OpPull, p.Pool, p.Requester, nil, func(ctx context.Context, t *txn) error {
		if p.Requester.IsZero() {
			return fmt.Errorf("%w: requester", ErrInvalidIdentity)
		}
		if err := CheckPull(t.pool); err != nil {
			return err
		}
		cfg, err := t.pool.PaymentConfig(p.Method)
		if err != nil {
			return err
		}
		src, err := e.source(p.Source)
		if err != nil {
			return err
		}
		commit, err := src.CommitSlot(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRandomnessAccount, err)
		}
		if err := checkFresh(t.slot, commit, e.maxSlotDiff); err != nil {
			return err
		}

		nonce := t.pool.PullCount
		receipt, err := e.pay(ctx, Transfer{
			Payer:     p.Requester,
			Recipient: cfg.Recipient,
			Method:    cfg.Method,
			Amount:    cfg.Price,
			Proof:     p.Proof,
			Memo:      fmt.Sprintf("gacha:%d:%d", t.pool.ID, nonce),
		})
		if err != nil {
			return err
		}

		req = &PullRequest{
			Pool:       t.pool.ID,
			Nonce:      nonce,
			Requester:  p.Requester,
			Method:     cfg.Method,
			Price:      cfg.Price,
			Source:     src.ID(),
			CommitSlot: commit,
			PullSlot:   t.slot,
			PaymentRef: receipt.Reference,
		}
		t.pool.PullCount++
		t.batch.Request = req
		t.emit(EventPulled, Pulled{
			Nonce: nonce, Method: cfg.Method, Price: cfg.Price,
			Source: req.Source, CommitSlot: commit,
			Pending: t.pool.PendingCount(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req.Clone(), nil
}

func (e *Engine) pay(ctx context.Context, tr Transfer) (Receipt, error) {
	if e.payments == nil {
		return Receipt{}, fmt.Errorf("%w: no payment backend", ErrPaymentFailed)
	}
	receipt, err := e.payments.Transfer(ctx, tr)
	if err == nil {
		return receipt, nil
	}
	if KindOf(err) != KindUnknown {
		return Receipt{}, err
	}
	return Receipt{}, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
}

// SettleParams are the inputs of Settle.
type SettleParams struct {
	Pool      PoolID
	Requester identity.ID
	Nonce     uint64
}

// RegisterSource makes src available to pulls under src.ID(). An ID is
// registered once: pending pulls resolve through the instance they
// committed to, and a later source cannot take its place.
func (e *Engine) RegisterSource(src RandomnessSource) error {
	if src == nil || src.ID() == "" {
		return fmt.Errorf("%w: source has no id", ErrInvalidRandomnessAccount)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sources[src.ID()]; ok {
		return fmt.Errorf("%w: %q is already registered", ErrInvalidRandomnessAccount, src.ID())
	}
	e.sources[src.ID()] = src
	return nil
}

// source returns the registered source id. Callers hold e.mu.
func (e *Engine) source(id string) (RandomnessSource, error) {
	src, ok := e.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrInvalidRandomnessAccount, id)
	}
	return src, nil
}

// Settle reveals the randomness of a pending pull and draws its reward.
func (e *Engine) Settle(ctx context.Context, p SettleParams) (*PullRequest, error) {
	var req *PullRequest
	err := e.run(ctx, OpSettle, p.Pool, p.Requester, nil, func(ctx context.Context, t *txn) error {
		var err error
		req, err = e.store.Request(ctx, t.pool.ID, p.Nonce)
		if err != nil {
			return err
		}
		if req.Requester != p.Requester {
			return fmt.Errorf("%w: nonce %d belongs to another requester", ErrUnauthorized, p.Nonce)
		}
		if err := CheckSettle(t.pool, req); err != nil {
			return err
		}
		if t.slot <= req.PullSlot {
			return fmt.Errorf("%w: current slot %d, pull slot %d", ErrSlotNotPassed, t.slot, req.PullSlot)
		}
		src, err := e.source(req.Source)
		if err != nil {
			return err
		}
		current, err := src.CommitSlot(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRandomnessAccount, err)
		}
		if current != req.CommitSlot {
			return fmt.Errorf("%w: committed to %d, source now at %d", ErrRandomnessExpired, req.CommitSlot, current)
		}
		if t.pool.RemainingCount() == 0 {
			return ErrGachaIsEmpty
		}

		value, err := src.Resolve(ctx, req.CommitSlot)
		if err != nil {
			if KindOf(err) != KindUnknown {
				return err
			}
			return fmt.Errorf("gacha: resolve randomness: %w", err)
		}
		r, err := RandomFromValue(value)
		if err != nil {
			return err
		}
		index, reward, err := t.pool.Draw(r)
		if err != nil {
			return err
		}

		req.settle(index, reward, t.slot)
		t.pool.SettleCount++
		t.batch.Request = req
		t.emit(EventResult, Settled{
			Nonce: req.Nonce, Requester: req.Requester,
			RewardIndex: index, Reward: reward,
			Remaining: t.pool.RemainingCount(), Pending: t.pool.PendingCount(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req.Clone(), nil
}

// Pool returns a snapshot of pool id.
func (e *Engine) Pool(ctx context.Context, id PoolID) (*Pool, error) {
	return e.store.Pool(ctx, id)
}

// Request returns the pull request of pool with nonce.
func (e *Engine) Request(ctx context.Context, pool PoolID, nonce uint64) (*PullRequest, error) {
	return e.store.Request(ctx, pool, nonce)
}

// Requests lists pull requests of pool, optionally for one requester.
func (e *Engine) Requests(ctx context.Context, pool PoolID, requester identity.ID) ([]*PullRequest, error) {
	if _, err := e.store.Pool(ctx, pool); err != nil {
		return nil, err
	}
	return e.store.Requests(ctx, pool, requester)
}

// Events lists audit events of pool with Seq greater than after.
func (e *Engine) Events(ctx context.Context, pool PoolID, after uint64) ([]Event, error) {
	if _, err := e.store.Pool(ctx, pool); err != nil {
		return nil, err
	}
	return e.store.Events(ctx, pool, after)
}

// IsPending reports whether err means the randomness is not yet available
// and the same settle may succeed later.
func IsPending(err error) bool {
	return errors.Is(err, ErrRandomnessNotResolved) || errors.Is(err, ErrSlotNotPassed)
}
