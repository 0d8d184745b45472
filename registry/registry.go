// Package registry announces running service instances in etcd so that MCP
// clients and load balancers can discover them.
//
// Every instance is stored under /{namespace}/{kind}/{name}/{instance-id}
// with a lease that is renewed every TTL/3. A crashed instance disappears
// once its lease expires.
package registry

import (
	"context"
	"time"
)

// KindMCPServer is the kind used for instances of this service.
const KindMCPServer = "mcp-server"

// ServiceInfo describes a registered service instance.
type ServiceInfo struct {
	// Kind identifies the component type, normally KindMCPServer
	Kind string `json:"kind"`

	// Name is the service name
	Name string `json:"name"`

	// Version is the service version
	Version string `json:"version"`

	// InstanceID is unique per process (typically a UUID)
	InstanceID string `json:"instance_id"`

	// Endpoint is the base URL or host:port where the instance is reachable
	Endpoint string `json:"endpoint"`

	// Metadata carries the profile and the exposed tool names
	Metadata map[string]string `json:"metadata,omitempty"`

	// StartedAt is the timestamp when this instance started
	StartedAt time.Time `json:"started_at"`
}

// Registry is the registration surface used by serve.
type Registry interface {
	// Register stores info under a fresh lease and keeps the lease alive
	// until Deregister or Close. Re-registering the same InstanceID
	// replaces the previous entry.
	Register(ctx context.Context, info ServiceInfo) error

	// Deregister revokes the instance's lease. Unknown instances are a no-op.
	Deregister(ctx context.Context, info ServiceInfo) error

	// Discover lists the instances registered under kind and name.
	Discover(ctx context.Context, kind, name string) ([]ServiceInfo, error)

	// Close stops keepalives and releases the connection.
	Close() error
}

// Config holds registry connection configuration.
type Config struct {
	// Endpoints is the list of etcd endpoints ("host:2379")
	Endpoints []string

	// Namespace is the etcd key prefix. Default: "sarcasm"
	Namespace string

	// TTL is the lease time-to-live in seconds. Default: 30
	TTL int

	// DialTimeout bounds the initial connection. Default: 5s
	DialTimeout time.Duration
}
