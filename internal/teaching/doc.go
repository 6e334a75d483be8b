// Package teaching runs a class plan as a countdown for teaching mode.
//
// Only exercises are timed. Callouts are folded into the following steps as
// their Section label. The timer moves idle -> running <-> paused ->
// finished; with auto-advance a step reaching zero moves on by itself,
// otherwise it waits at zero for Next.
//
// The timer reads a copy of the plan and never writes back.
package teaching
