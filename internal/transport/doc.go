// Package transport implements the agent transporter: per-neighbor
// byte-append buffers that move migrating payloads across the quadtree's
// neighbor graph, forwarding multi-hop when a destination is not a
// direct neighbor of the sending rank.
package transport
