// Package poller runs the status polling loop.
//
// Every iteration is FETCH → VALIDATE → (PARSE × N | SKIP) → SLEEP. The loop
// owns two pieces of state: the cursor (unix seconds passed as from_date) and
// a Suppressor that lets each error category reach the chat only once per
// failure streak.
package poller
