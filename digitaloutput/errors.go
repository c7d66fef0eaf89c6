package digitaloutput

import "errors"

// ErrCapacityExceeded is returned by Declare once every slot in the
// output table is in use.
var ErrCapacityExceeded = errors.New("digitaloutput: output table full")

// ErrUnknownOutput is returned by any operation given a handle this
// package did not issue.
var ErrUnknownOutput = errors.New("digitaloutput: unknown output handle")
