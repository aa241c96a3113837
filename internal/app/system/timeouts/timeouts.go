// Package timeouts centralizes the context deadlines handlers put on
// store calls. The governance core itself is deadline-free; the HTTP
// shell imposes these when it calls into Mongo.
//
// Picking a tier:
//   - Ping: the health endpoint's connectivity check
//   - Short: single-document reads (load a campaign, resolve an actor)
//   - Medium: list pages, simple creates and updates
//   - Long: pipeline operations spanning collections (submit, publish,
//     export with its awaited audit write)
package timeouts

import "time"

const (
	ping   = 2 * time.Second
	short  = 5 * time.Second
	medium = 10 * time.Second
	long   = 30 * time.Second
)

// Ping returns the deadline for the health endpoint's Mongo ping.
func Ping() time.Duration { return ping }

// Short returns the deadline for single-document reads.
func Short() time.Duration { return short }

// Medium returns the deadline for list queries and simple writes.
func Medium() time.Duration { return medium }

// Long returns the deadline for multi-collection pipeline operations.
func Long() time.Duration { return long }
