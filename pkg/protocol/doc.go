// Package protocol implements the wire-level adapters behind imposters.
//
// An Adapter terminates connections on a bound host:port, decodes wire
// bytes into a protocol-neutral [imposter.Request], hands the request to
// a Responder, and encodes the returned response back onto the wire.
// Protocols form a closed set: http, https, tcp, and smtp. Adding a
// protocol means adding an Adapter variant, not subclassing.
//
// Adapters know nothing about stubs, predicates, or proxying; that logic
// lives behind the Responder interface. They are responsible only for
// the socket lifecycle:
//
//   - Start binds the listener and begins serving in the background.
//   - Stop closes the listener, waits for in-flight requests, and
//     releases the port before returning. Stop is idempotent.
//
// Framing:
//
//   - http/https: one request per HTTP exchange.
//   - tcp: one request per read chunk, or, when the imposter configures
//     an endOfRequest marker, per marker-terminated frame. Connections
//     stay open for further requests until the client disconnects.
//   - smtp: one request per completed DATA dialog; a connection may
//     deliver several messages.
package protocol
