// Package host provides a reference host loop for the tick scheduler.
//
// The scheduler never reads a clock. A host measures frame time and passes
// the delta to Scheduler.Advance once per frame. Loop does exactly that at a
// configured frame rate, registers one counting action per configured group,
// and periodically reports how many ticks each group fired against
// floor(elapsed*rate).
//
// Configuration is loaded from YAML with LoadConfig.
package host
