// Package queue carries tool invocations over Redis so the sarcasm tools
// can be executed by a pool of workers instead of in the HTTP process.
//
// Submitters push a WorkItem naming a tool and its arguments onto a service
// queue. A worker pops the item, runs it through a dispatch.Dispatcher, and
// publishes the Result on the job's pub/sub channel.
//
// # Redis Key Schema
//
//   - <prefix>:<service>:queue - List of work items (LPUSH/BRPOP)
//   - tool:<name>:meta - Hash of tool metadata
//   - tool:<name>:health - String with 30s TTL refreshed by worker heartbeats
//   - service:<service>:workers - Integer counter of running workers
//   - tools:available - Set of registered tool names
//   - results:<jobID> - Pub/Sub channel for job results
//
// # Usage
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{URL: "redis://localhost:6379"})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	res, err := queue.Submit(ctx, client, queue.QueueName("tool", "sarcasm"),
//		"sarcastic_motivation", map[string]any{"name": "Dave"})
package queue
