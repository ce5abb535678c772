// Package websocket implements the /ws/ bidirectional relay channel.
//
// A single Hub actor owns the connection set; messages read from one client
// are relayed to every other connected client. Per-connection write goroutines
// with bounded send buffers keep slow clients from blocking the relay,
// mirroring the eviction discipline of the broadcast package.
package websocket
