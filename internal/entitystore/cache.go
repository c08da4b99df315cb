package entitystore

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// freshnessCacheTTL bounds how long a natural-key lookup result is reused
// without hitting Postgres again, absorbing repeated freshness checks
// within one fan-out batch (SPEC_FULL.md §3.4).
const freshnessCacheTTL = 30 * time.Second

// naturalKeyCache is a read-through cache in front of LookupByNaturalKey,
// keyed by "org_id:table_name" followed by ":column=value" for each
// natural-key column of the schema.
type naturalKeyCache struct {
	cache *ttlcache.Cache[string, *Record]
}

func newNaturalKeyCache() *naturalKeyCache {
	c := ttlcache.New[string, *Record](
		ttlcache.WithTTL[string, *Record](freshnessCacheTTL),
	)
	go c.Start()
	return &naturalKeyCache{cache: c}
}

func (c *naturalKeyCache) key(orgID string, schema Schema, key NaturalKey) string {
	s := fmt.Sprintf("%s:%s", orgID, schema.TableName)
	for _, col := range schema.NaturalKeyColumns {
		s += ":" + col + "=" + key[col]
	}
	return s
}

func (c *naturalKeyCache) get(orgID string, schema Schema, key NaturalKey) (*Record, bool) {
	item := c.cache.Get(c.key(orgID, schema, key))
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *naturalKeyCache) set(orgID string, schema Schema, key NaturalKey, rec *Record) {
	c.cache.Set(c.key(orgID, schema, key), rec, ttlcache.DefaultTTL)
}

func (c *naturalKeyCache) invalidate(orgID string, schema Schema, key NaturalKey) {
	c.cache.Delete(c.key(orgID, schema, key))
}

func (c *naturalKeyCache) stop() {
	c.cache.Stop()
}
