// Package admin serves the management API: the HTTP+JSON surface for
// creating, inspecting, and deleting imposters, editing their stubs, and
// reading server diagnostics.
//
// The API speaks the same JSON shapes as the snapshot document, so the
// output of GET /imposters?replayable=true can be fed straight back into
// PUT /imposters. Errors travel as {"errors": [{"code", "message"}]}
// documents with a small closed code set.
package admin
