// Package accounts implements account registration and the login /
// logout endpoints. Passwords are bcrypt-hashed before they reach
// storage; login hands out the caller's opaque bearer token.
package accounts
