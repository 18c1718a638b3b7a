package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/sirupsen/logrus"
)

// cachedCollection puts the cache tier behind a primary collection.
//
// Reads go to the primary and refresh the cache. When the primary is
// unavailable, reads are answered from the cache. Writes never fall back.
type cachedCollection[T models.Entity] struct {
	primary Collection[T]
	cache   Cache
	breaker *utils.CircuitBreaker
}

func newCachedCollection[T models.Entity](primary Collection[T], cache Cache, breaker *utils.CircuitBreaker) *cachedCollection[T] {
	return &cachedCollection[T]{primary: primary, cache: cache, breaker: breaker}
}

func (c *cachedCollection[T]) Name() string {
	return c.primary.Name()
}

func (c *cachedCollection[T]) call(fn func() error) error {
	return classify(c.breaker.Call(func() error {
		return classify(fn())
	}))
}

func (c *cachedCollection[T]) Create(ctx context.Context, rec *T) error {
	if err := c.call(func() error { return c.primary.Create(ctx, rec) }); err != nil {
		return err
	}
	c.put(ctx, rec)
	return nil
}

func (c *cachedCollection[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var rec *T
	err := c.call(func() error {
		var err error
		rec, err = c.primary.GetByID(ctx, id)
		return err
	})
	switch {
	case err == nil:
		c.put(ctx, rec)
		return rec, nil
	case IsNotFound(err):
		c.remove(ctx, id)
		return nil, err
	case errors.Is(err, ErrTransient):
		payload, ok, cerr := c.cache.Get(ctx, c.Name(), id)
		if cerr != nil || !ok {
			return nil, err
		}
		var cached T
		if json.Unmarshal(payload, &cached) != nil {
			return nil, err
		}
		c.logStale(err, 1)
		return &cached, nil
	}
	return nil, err
}

func (c *cachedCollection[T]) GetAll(ctx context.Context) ([]T, error) {
	var recs []T
	err := c.call(func() error {
		var err error
		recs, err = c.primary.GetAll(ctx)
		return err
	})
	if err == nil {
		c.replace(ctx, recs)
		return recs, nil
	}
	if !errors.Is(err, ErrTransient) {
		return nil, err
	}
	cached, cerr := c.cached(ctx, func(map[string]interface{}) bool { return true })
	if cerr != nil {
		return nil, err
	}
	c.logStale(err, len(cached))
	return cached, nil
}

func (c *cachedCollection[T]) FindBy(ctx context.Context, column string, ids ...string) ([]T, error) {
	var recs []T
	err := c.call(func() error {
		var err error
		recs, err = c.primary.FindBy(ctx, column, ids...)
		return err
	})
	if err == nil {
		for i := range recs {
			c.put(ctx, &recs[i])
		}
		return recs, nil
	}
	if !errors.Is(err, ErrTransient) {
		return nil, err
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	cached, cerr := c.cached(ctx, func(fields map[string]interface{}) bool {
		v, _ := fields[column].(string)
		return wanted[v]
	})
	if cerr != nil {
		return nil, err
	}
	c.logStale(err, len(cached))
	return cached, nil
}

func (c *cachedCollection[T]) Update(ctx context.Context, id string, changes models.Changes) (*T, error) {
	var rec *T
	err := c.call(func() error {
		var err error
		rec, err = c.primary.Update(ctx, id, changes)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.put(ctx, rec)
	return rec, nil
}

func (c *cachedCollection[T]) UpdateIf(ctx context.Context, id string, expect, changes models.Changes) (*T, error) {
	var rec *T
	err := c.call(func() error {
		var err error
		rec, err = c.primary.UpdateIf(ctx, id, expect, changes)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.put(ctx, rec)
	return rec, nil
}

func (c *cachedCollection[T]) Delete(ctx context.Context, id string) error {
	if err := c.call(func() error { return c.primary.Delete(ctx, id) }); err != nil {
		return err
	}
	c.remove(ctx, id)
	return nil
}

// refresh reloads one record from the primary into the cache after a batch commit.
func (c *cachedCollection[T]) refresh(ctx context.Context, id string) {
	rec, err := c.primary.GetByID(ctx, id)
	if err != nil {
		c.remove(ctx, id)
		return
	}
	c.put(ctx, rec)
}

func (c *cachedCollection[T]) cached(ctx context.Context, keep func(map[string]interface{}) bool) ([]T, error) {
	payloads, err := c.cache.All(ctx, c.Name())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(payloads))
	for _, payload := range payloads {
		var fields map[string]interface{}
		if json.Unmarshal(payload, &fields) != nil || !keep(fields) {
			continue
		}
		var rec T
		if json.Unmarshal(payload, &rec) != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetID() < out[j].GetID() })
	return out, nil
}

func (c *cachedCollection[T]) put(ctx context.Context, rec *T) {
	payload, err := json.Marshal(rec)
	if err == nil {
		err = c.cache.Put(ctx, c.Name(), (*rec).GetID(), payload)
	}
	if err != nil {
		c.logCacheError("put", err)
	}
}

func (c *cachedCollection[T]) remove(ctx context.Context, id string) {
	if err := c.cache.Remove(ctx, c.Name(), id); err != nil {
		c.logCacheError("remove", err)
	}
}

func (c *cachedCollection[T]) replace(ctx context.Context, recs []T) {
	payloads := make(map[string][]byte, len(recs))
	for i := range recs {
		payload, err := json.Marshal(&recs[i])
		if err != nil {
			c.logCacheError("replace", err)
			return
		}
		payloads[recs[i].GetID()] = payload
	}
	if err := c.cache.Replace(ctx, c.Name(), payloads); err != nil {
		c.logCacheError("replace", err)
	}
}

func (c *cachedCollection[T]) logStale(cause error, n int) {
	utils.Logger.WithFields(logrus.Fields{
		"collection": c.Name(),
		"records":    n,
	}).WithError(cause).Warn("primary store unavailable, serving cached records")
}

func (c *cachedCollection[T]) logCacheError(op string, err error) {
	utils.Logger.WithFields(logrus.Fields{
		"collection": c.Name(),
		"op":         op,
	}).WithError(err).Warn("cache tier write failed")
}
