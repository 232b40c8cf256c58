// Package billing turns delivery and payment records into monthly summaries,
// customer balances and lifetime ledgers, and decides whether an account may
// record another delivery under its subscription plan.
//
// Every function here is pure: it reads the slices it is given, never mutates
// them, and keeps no state between calls, so concurrent callers need no locking.
package billing
