/*
Package authsdk is the client SDK for the Gatehouse authentication service,
and the home of the error taxonomy the service writes on the wire.

# Client vs Session

  - Client: unauthenticated calls (login, health) and Basic-authenticated
    requests, which carry the password on every call.
  - Session: calls made with a bearer token obtained from Login.

Typical use:

	client := authsdk.NewClient("http://localhost:8080")

	session, err := client.Login(ctx, "admin1", "password")
	if err != nil {
		return err
	}
	defer session.Logout(ctx)

	who, err := session.WhoAmI(ctx)
	body, err := session.Get(ctx, "/admin-only")

Basic credentials skip the login step entirely:

	body, err := client.BasicGet(ctx, "/basic-protected", "user1", "password")

# Errors

Every non-2xx response is returned as an *APIError carrying the HTTP status
and the service's error kind. Compare with errors.Is against the predefined
values, which match on kind:

	_, err := session.Get(ctx, "/admin-only")
	if errors.Is(err, authsdk.ErrForbidden) {
		// authenticated, but not an admin
	}

The server uses the same values to write its responses, so both sides agree
on the body shape {"error": kind, "error_description": text}.
*/
package authsdk
