/*
Package session manages per-user conversation sessions.

The Manager loads, expires and saves session snapshots while holding a
per-user lock (plus an optional distributed lock), so two turns for the same
user never interleave while turns for different users run in parallel.
Mailbox adds arrival-order queuing in front of the Manager for transports
that receive messages concurrently.
*/
package session
