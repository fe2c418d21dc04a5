// Package store holds the PostgreSQL implementations of the account and
// identity link collaborators, plus the embedded schema migrations.
//
// Repository errors carry samber/oops codes. A missing account wraps
// gatekeeper.ErrAccountNotFound so errors.Is works through the wrap.
package store
