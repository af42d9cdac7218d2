// Package scheduler provides the fixed-rate tick scheduler.
//
// A Scheduler keeps one rate group per distinct tick rate. Each group owns a
// set of actions and the elapsed time it has not yet converted into ticks.
// Update adds the caller-supplied delta to every group and fires each group's
// actions once per whole interval (1/rate seconds) that has accumulated,
// carrying the remainder into the next call. The average firing rate is
// therefore exact no matter how irregularly Update is called.
//
// A Scheduler does not measure time and does not lock. All calls must come
// from one goroutine, or be serialized by the caller. Actions may call back
// into the scheduler while they are being fired:
//   - an action unregistered during a tick does not fire for the rest of it
//   - an action registered during a tick first fires on the next tick
//   - Clear during a tick stops all further firing in that Update
//
// Most users should import the root package github.com/jdziat/fixed-tick
// which re-exports these types.
package scheduler
