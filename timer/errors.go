package timer

import "errors"

// ErrWheelFull is returned by Arm when the wheel is already holding its
// configured maximum number of pending futures.
var ErrWheelFull = errors.New("timer: wheel at capacity")
