// Package cache provides the storage behind forcetree's layout and artifact
// caching.
//
// Three backends implement [Cache]: [NullCache] (disabled), [FileCache]
// (the CLI default, under the user cache directory) and [RedisCache] (the
// server). Keys come from a [Keyer]; the default one hashes the ecosystem or
// layout digest together with the settings that affect the result, so any
// change in simulation or render options produces a new key.
//
//	c, _ := cache.NewFileCache(dir)
//	k := cache.NewDefaultKeyer()
//	key := k.LayoutKey(cache.Hash(ecosystemJSON), cache.LayoutKeyOpts{Width: 200, Height: 200})
//	data, hit, err := c.Get(ctx, key)
//
// [Instrument] wraps any Cache so hits, misses and writes reach the
// observability cache hooks.
package cache
