package types

import (
	"io"
)

type Stream interface {
	io.Closer
}

type RecordStream interface {
	Stream
}
