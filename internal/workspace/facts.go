package workspace

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

type factKind string

const (
	factCurrentBranch     factKind = "current-branch"
	factDirty             factKind = "dirty"
	factDetachedHead      factKind = "detached-head"
	factBranches          factKind = "branches"
	factRemoteHeads       factKind = "remote-heads"
	factSubmoduleStatuses factKind = "submodule-statuses"
	factMostCommonBranch  factKind = "most-common-branch"
)

const factKeySeparator = "\x00"

var branchFactKinds = []factKind{factCurrentBranch, factDetachedHead, factBranches, factRemoteHeads}

// factCache memoizes lazily computed facts. Concurrent first queries for the same key share one computation.
// Failed computations are not memoized.
type factCache struct {
	values sync.Map
	group  singleflight.Group
}

func newFactCache() *factCache {
	return &factCache{}
}

func factKey(kind factKind, subject string) string {
	return string(kind) + factKeySeparator + subject
}

func (cache *factCache) forget(kind factKind, subject string) {
	cache.values.Delete(factKey(kind, subject))
}

func (cache *factCache) forgetAll(subject string, kinds []factKind) {
	for _, kind := range kinds {
		cache.forget(kind, subject)
	}
}

func memoize[T any](cache *factCache, kind factKind, subject string, compute func() (T, error)) (T, error) {
	key := factKey(kind, subject)
	if stored, found := cache.values.Load(key); found {
		return stored.(T), nil
	}

	computed, computeError, _ := cache.group.Do(key, func() (any, error) {
		if stored, found := cache.values.Load(key); found {
			return stored, nil
		}
		value, valueError := compute()
		if valueError != nil {
			return nil, valueError
		}
		cache.values.Store(key, value)
		return value, nil
	})
	if computeError != nil {
		var zero T
		return zero, computeError
	}
	return computed.(T), nil
}

func (cache *factCache) forgetKind(kind factKind) {
	prefix := string(kind) + factKeySeparator
	cache.values.Range(func(key any, _ any) bool {
		if keyString, isString := key.(string); isString && strings.HasPrefix(keyString, prefix) {
			cache.values.Delete(key)
		}
		return true
	})
}
