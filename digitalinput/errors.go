package digitalinput

import "errors"

// ErrDirectCapacityExceeded is returned by Direct.Declare once every
// slot in the direct-input table is in use.
var ErrDirectCapacityExceeded = errors.New("digitalinput: direct input table full")

// ErrSampledCapacityExceeded is returned by Sampled.Declare once every
// slot in the sampled-input table is in use.
var ErrSampledCapacityExceeded = errors.New("digitalinput: sampled input table full")

// ErrUnknownInput is returned by Read when given a handle this package
// did not issue.
var ErrUnknownInput = errors.New("digitalinput: unknown input handle")
