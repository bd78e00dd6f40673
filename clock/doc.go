// Package clock provides the time source used by session expiry and
// simulated transport latency.
//
// Production code uses [Real]. Tests use [Fake], whose time only moves
// when [FakeClock.Advance] or [FakeClock.Set] is called, so the 24-hour
// expiry window can be crossed without sleeping.
package clock
