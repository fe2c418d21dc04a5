// Package identity checks that an account is linked to an external identity
// and decides whether that identity is old enough to pass the age gate.
//
// External identity ids are 64-bit snowflakes: the bits above the low 22
// encode milliseconds since [Epoch]. [CreatedAt] and [OldEnough] are pure
// and take the clock as an argument.
package identity
