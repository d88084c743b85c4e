// Package auth is HomeBot's local identity provider.
//
// Accounts are stored in SQLite with Argon2id password hashes (PHC
// strings). LocalProvider offers the user management operations the
// admin panel needs plus Authenticate for login, which stamps lastLogin.
// Successful logins are answered with a short-lived HS256 JWT carrying
// the user's role and email.
//
// Authorisation is not enforced here: route grouping under /admin is the
// only separation between admin and homeowner features.
package auth
