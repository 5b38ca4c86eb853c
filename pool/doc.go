// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable scratch memory for the file streaming path. Chunk-sized buffers
// are recycled through sync.Pool so that many concurrent transfers do not
// allocate one chunk per production step.
package pool
