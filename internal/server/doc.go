// Package server exposes a store over HTTP and provides a matching client.
//
// Routes:
//   - GET    /healthz
//   - GET    /v1/namespaces
//   - GET    /v1/ns/{ns}/keys[?sorted=true]
//   - DELETE /v1/ns/{ns}                (clear the namespace)
//   - GET    /v1/ns/{ns}/kv/{key}
//   - PUT    /v1/ns/{ns}/kv/{key}   (body: any JSON value)
//   - DELETE /v1/ns/{ns}/kv/{key}
//   - POST   /v1/commit
//
// The default namespace is addressed as "_"; a namespace whose name is only
// underscores gets one more, so "_" is "__". Values travel as plain JSON,
// so the server is meant for loopback or otherwise protected links.
// Request logs carry the route pattern, never the key or the value.
package server
