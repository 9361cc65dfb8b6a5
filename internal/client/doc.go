// Package client talks to a RegistaDB server: QueryClient runs requests over
// the gRPC query channel and Pusher streams entries to the ingest channel.
package client
