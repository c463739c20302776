// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifiers, credentials, and token utilities.

# Action Tokens

Every state-changing action requires a verification token bound to the
user, the action name, and a 12-hour window:

	token := auth.GenerateActionToken(userID, "update_profile", salt, time.Now())
	err := auth.ValidateActionToken(userID, "update_profile", token, salt, time.Now())

Tokens are HMAC-SHA256 based and URL-safe base64 encoded. A token issued in
one window is still accepted during the next, so a token lives between 12
and 24 hours. Nothing is stored server side.

# Sessions

Sessions are HS256 JWTs carrying the user ID and role:

	token, err := auth.IssueSession(userID, auth.RoleMember, secret, ttl, time.Now())
	claims, err := auth.ParseSession(token, secret)

Role "admin" grants the member-management capability.

# Passwords

Passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword(password)
	err := auth.CheckPassword(hash, password)

# Member Codes

	code, err := auth.GenerateMemberCode() // e.g. MEMK3D9ZQ1A

Codes are random; callers check the member table for collisions and retry.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
