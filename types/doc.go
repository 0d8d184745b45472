// Package types holds small value types shared by the transports.
//
// HealthStatus is what every dependency check returns and what GET /healthz
// serialises:
//
//	status := types.NewDegradedStatus("redis unreachable", map[string]any{
//	    "addr": "localhost:6379",
//	})
//	w.WriteHeader(status.HTTPCode())
package types
