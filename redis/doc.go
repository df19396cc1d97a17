// Package redis provides the Redis client component backing the run status
// store: each run's latest progress and final report are written as JSON
// so dashboards and other processes can follow a run without the status
// server.
//
//	c := redis.NewComponent(cfg, log)
//	// after Start
//	store := redis.NewTypedStore[RunStatus](c.Client(), cfg.KeyPrefix)
//	err := store.Save(ctx, "run:"+id, &status, cfg.StatusTTL)
package redis
