// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor constants.

package reactor

// DefaultMaxEvents bounds the number of events returned by one Wait call.
const DefaultMaxEvents = 256
