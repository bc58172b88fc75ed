// Package auth owns credential handling and the token authority: bcrypt
// password hashing, opaque bearer token minting, and the issue / resolve
// / revoke lifecycle with a single active token per user.
package auth
