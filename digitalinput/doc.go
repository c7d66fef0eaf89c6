// Package digitalinput implements two coexisting input registries: a
// direct, edge-triggered path with a per-port pending-acknowledge mask
// and filter-timer debounce, and a sampled, integrator-based path
// driven by a periodic timer.
//
// Both registries are declared against a fixed-capacity table at
// construction time, its footprint charged against a configured arena
// budget; there is no dynamic growth or deregistration afterward,
// matching this firmware's "declare once at boot, run forever"
// lifecycle.
package digitalinput
