// Package dynamics provides the envelope follower and the log2-domain
// soft-knee gain computer shared by the compressor, gate and de-esser
// plugins.
//
// Both types are mono, allocation free and not safe for concurrent use.
package dynamics
