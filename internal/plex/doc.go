// Package plex is the client for the Plex APIs audioshelf depends on.
//
// Two hosts are involved. plex.tv (DefaultBaseURL) handles the PIN pairing
// flow and lists the servers ("resources") a user can reach. Each server
// exposes its own library endpoints at whichever connection URI answered a
// probe.
//
//	POST /pins                               create a pairing pin
//	GET  /pins/{id}                          poll it; authToken set once approved
//	GET  /resources                          servers and their connections
//	GET  {server}/library/sections/          MediaContainer.Directory
//	GET  {server}/library/sections/{key}/all MediaContainer.Metadata (type=9)
//
// Every request carries the X-Plex identification headers plus the user
// token once signed in. Requests time out after five seconds and are never
// retried here; failures wrap ErrNetwork, undecodable bodies wrap
// ErrMalformedResponse.
//
// FindConnection fans a probe out to all connections of a resource and
// returns whichever answers first.
package plex
