// Package digitaloutput implements a compact ASCII sequence language:
// a tiny state machine that drives a pin through a string of
// `+`/`-`/`X` tokens, each optionally followed by a digit 0-8
// selecting how long that step lasts as a fraction of a reference
// period, re-arming itself through a timer.Wheel between steps.
package digitaloutput
