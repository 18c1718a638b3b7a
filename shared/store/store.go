package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
	"gorm.io/gorm"
)

// Options configures a Store
type Options struct {
	// Cache is the local tier; a MemoryCache is used when nil.
	Cache Cache
	// Now supplies write timestamps; time.Now when nil.
	Now func() time.Time
	// BreakerFailures and BreakerReset tune the primary-tier circuit breaker.
	BreakerFailures int
	BreakerReset    time.Duration
}

// Store gives typed access to every collection.
//
// A Store returned by New reads and writes through the cache tier. The
// Store handed to an Atomic callback is bound to the batch transaction.
type Store struct {
	db      *gorm.DB
	cache   Cache
	breaker *utils.CircuitBreaker
	now     func() time.Time
	batch   *batch
	tiers   *tiers

	Properties  Collection[models.Property]
	Units       Collection[models.Unit]
	Tenants     Collection[models.Tenant]
	Leases      Collection[models.Lease]
	Payments    Collection[models.Payment]
	Maintenance Collection[models.Maintenance]
	Users       Collection[models.User]
	Activities  Collection[models.Activity]
}

// tiers keeps the cached collections so batches can refresh them after commit.
type tiers struct {
	properties  *cachedCollection[models.Property]
	units       *cachedCollection[models.Unit]
	tenants     *cachedCollection[models.Tenant]
	leases      *cachedCollection[models.Lease]
	payments    *cachedCollection[models.Payment]
	maintenance *cachedCollection[models.Maintenance]
	users       *cachedCollection[models.User]
	activities  *cachedCollection[models.Activity]
}

// New returns a Store over db
func New(db *gorm.DB, opts Options) *Store {
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BreakerFailures <= 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = 30 * time.Second
	}
	now := func() time.Time { return opts.Now().UTC() }
	breaker := utils.NewCircuitBreaker("primary-store", opts.BreakerFailures, opts.BreakerReset,
		utils.WithTripPredicate(IsTransient))

	t := &tiers{
		properties:  newCachedCollection[models.Property](newGormCollection[models.Property](db, now), opts.Cache, breaker),
		units:       newCachedCollection[models.Unit](newGormCollection[models.Unit](db, now), opts.Cache, breaker),
		tenants:     newCachedCollection[models.Tenant](newGormCollection[models.Tenant](db, now), opts.Cache, breaker),
		leases:      newCachedCollection[models.Lease](newGormCollection[models.Lease](db, now), opts.Cache, breaker),
		payments:    newCachedCollection[models.Payment](newGormCollection[models.Payment](db, now), opts.Cache, breaker),
		maintenance: newCachedCollection[models.Maintenance](newGormCollection[models.Maintenance](db, now), opts.Cache, breaker),
		users:       newCachedCollection[models.User](newGormCollection[models.User](db, now), opts.Cache, breaker),
		activities:  newCachedCollection[models.Activity](newGormCollection[models.Activity](db, now), opts.Cache, breaker),
	}
	return &Store{
		db:          db,
		cache:       opts.Cache,
		breaker:     breaker,
		now:         now,
		tiers:       t,
		Properties:  t.properties,
		Units:       t.units,
		Tenants:     t.tenants,
		Leases:      t.leases,
		Payments:    t.payments,
		Maintenance: t.maintenance,
		Users:       t.users,
		Activities:  t.activities,
	}
}

// Now returns the store clock in UTC
func (s *Store) Now() time.Time {
	return s.now()
}

// Migrate creates or updates the tables of every collection
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(models.All()...)
}

// Ping checks that the primary tier is reachable
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return nil
}

// Breaker exposes the primary-tier circuit breaker state
func (s *Store) Breaker() utils.CircuitState {
	return s.breaker.GetState()
}

// InBatch reports whether the store is bound to an Atomic batch
func (s *Store) InBatch() bool {
	return s.batch != nil
}

// Atomic runs fn against a Store bound to a single transaction. Either
// every write fn makes is committed or none is. A call made from inside
// an Atomic callback joins the outer batch.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	if s.batch != nil {
		return fn(s)
	}

	b := &batch{touched: make(map[string]func(context.Context))}
	err := s.breaker.Call(func() error {
		return classify(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(s.bind(tx, b))
		}))
	})
	if err != nil {
		return classify(err)
	}
	b.refresh(ctx)
	return nil
}

func (s *Store) bind(tx *gorm.DB, b *batch) *Store {
	return &Store{
		db:          tx,
		cache:       s.cache,
		breaker:     s.breaker,
		now:         s.now,
		batch:       b,
		tiers:       s.tiers,
		Properties:  track[models.Property](newGormCollection[models.Property](tx, s.now), s.tiers.properties, b),
		Units:       track[models.Unit](newGormCollection[models.Unit](tx, s.now), s.tiers.units, b),
		Tenants:     track[models.Tenant](newGormCollection[models.Tenant](tx, s.now), s.tiers.tenants, b),
		Leases:      track[models.Lease](newGormCollection[models.Lease](tx, s.now), s.tiers.leases, b),
		Payments:    track[models.Payment](newGormCollection[models.Payment](tx, s.now), s.tiers.payments, b),
		Maintenance: track[models.Maintenance](newGormCollection[models.Maintenance](tx, s.now), s.tiers.maintenance, b),
		Users:       track[models.User](newGormCollection[models.User](tx, s.now), s.tiers.users, b),
		Activities:  track[models.Activity](newGormCollection[models.Activity](tx, s.now), s.tiers.activities, b),
	}
}

// batch records which cached records a transaction wrote.
type batch struct {
	mu      sync.Mutex
	touched map[string]func(context.Context)
}

func (b *batch) touch(collection, id string, refresh func(context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touched[collection+"/"+id] = refresh
}

func (b *batch) refresh(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, fn := range b.touched {
		fn(ctx)
	}
}

// trackedCollection is a transaction-bound collection that queues a cache
// refresh for every record it writes.
type trackedCollection[T models.Entity] struct {
	Collection[T]
	outer *cachedCollection[T]
	batch *batch
}

func track[T models.Entity](inner Collection[T], outer *cachedCollection[T], b *batch) *trackedCollection[T] {
	return &trackedCollection[T]{Collection: inner, outer: outer, batch: b}
}

func (t *trackedCollection[T]) touch(id string) {
	t.batch.touch(t.Name(), id, func(ctx context.Context) { t.outer.refresh(ctx, id) })
}

func (t *trackedCollection[T]) Create(ctx context.Context, rec *T) error {
	if err := t.Collection.Create(ctx, rec); err != nil {
		return err
	}
	t.touch((*rec).GetID())
	return nil
}

func (t *trackedCollection[T]) Update(ctx context.Context, id string, changes models.Changes) (*T, error) {
	rec, err := t.Collection.Update(ctx, id, changes)
	if err == nil {
		t.touch(id)
	}
	return rec, err
}

func (t *trackedCollection[T]) UpdateIf(ctx context.Context, id string, expect, changes models.Changes) (*T, error) {
	rec, err := t.Collection.UpdateIf(ctx, id, expect, changes)
	if err == nil {
		t.touch(id)
	}
	return rec, err
}

func (t *trackedCollection[T]) Delete(ctx context.Context, id string) error {
	if err := t.Collection.Delete(ctx, id); err != nil {
		return err
	}
	t.touch(id)
	return nil
}
