// Package worker runs sarcasm tools from a Redis work queue.
//
// A worker announces the tools of its dispatcher under tool:<name>:meta,
// keeps their heartbeats fresh, and runs Concurrency loops that pop work
// items, dispatch them, and publish each result on results:<job_id>.
//
//	client, _ := queue.NewRedisClient(queue.RedisOptions{URL: cfg.Redis.GetURL()})
//	err := worker.Run(ctx, d, worker.Options{Client: client, Config: cfg.Worker})
package worker
