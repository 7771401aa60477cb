// Package repositories persists coordinator state in BadgerDB.
//
// Keys follow the "{kind}:{scope}:{paddedNanos}:{uuid}" convention: the
// 19-digit zero padding keeps lexicographical order equal to chronological
// order, and the trailing uuid disambiguates entries created in the same
// nanosecond.
package repositories

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic(err)
	}
}

func encode(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func decode(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

// paddedNanos renders a timestamp as a fixed-width sortable string.
func paddedNanos(t time.Time) string {
	return pad19(t.UnixNano())
}

func pad19(n int64) string {
	const width = 19
	buf := [width]byte{}
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}
