// Package serve exposes a dispatch.Dispatcher over the network.
//
// The HTTP surface offers a small JSON API alongside the Model Context
// Protocol SSE transport:
//
//	GET  /                 status line
//	GET  /healthz          combined dependency health
//	GET  /.well-known/mcp  name, version, profile and endpoint paths
//	GET  /tools            tool descriptors
//	POST /tools/call       {name, arguments} -> {content}
//	GET  /sse, POST /message   MCP over SSE
//
// An unknown tool name is answered with HTTP 200 and an error payload in
// content. Invalid arguments are answered with 422.
//
// When a gRPC address is configured the same dispatcher is served as
// sarcasm.v1.ToolService next to the standard gRPC health service.
//
// # Usage
//
//	srv, err := serve.NewServer(d,
//	    serve.WithHTTPAddr(":8080"),
//	    serve.WithGRPCAddr(":9090"),
//	    serve.WithGracefulShutdown(10*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	return srv.Serve(ctx)
//
// Requests without an Authorization header are logged and served anyway.
package serve
