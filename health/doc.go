// # Usage
//
//	status := health.Run(ctx,
//	    health.PingCheck("redis", false, func(ctx context.Context) error {
//	        return rdb.Ping(ctx).Err()
//	    }),
//	)
//
// # Priority
//
// When combining health checks with Combine(), unhealthy beats degraded and
// degraded beats healthy. Optional backends (Redis, etcd) report degraded
// when unreachable so the HTTP surface keeps answering 200.
package health
