//go:build !cgo

package opus

import "errors"

// New creates an Opus codec for the fixed session profile. The gopus library
// requires cgo, so builds without it always report the codec as unavailable;
// callers should degrade to [Passthrough] in that case rather than refuse the
// session.
func New() (Codec, error) {
	return nil, errors.New("opus: built without cgo, codec unavailable")
}
