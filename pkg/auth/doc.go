// Package auth implements the authentication core: bcrypt credential
// hashing, HS256 token encoding/decoding, a two-tier token blacklist
// (bounded in-memory cache backed by a durable store), and the Service
// that ties them together for login, request verification, and logout.
package auth
