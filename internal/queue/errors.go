package queue

import "errors"

var ErrClosed = errors.New("queue is closed")
