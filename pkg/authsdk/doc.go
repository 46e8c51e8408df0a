/*
Package authsdk provides a client SDK for the shop authentication service.

# Overview

The service issues a short lived access token and a single use refresh token
per login. SDKClient covers the public endpoints and Session wraps a token
pair, refreshing it before the access token expires.

	client := authsdk.NewSDKClient("https://shop.example.com")

	// Create an account; the response already carries a token pair
	auth, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:    "alice@example.com",
		Password: "wonderland",
		Name:     "Alice",
	})

	// Or sign in and get a Session
	session, err := client.AuthenticateWithPassword(ctx, "alice@example.com", "wonderland")

	user, err := session.Profile(ctx)

# Refresh Tokens

Every refresh rotates the pair and the old refresh token stops working at
once. Only one refresh token per user is valid at any time: logging in on a
second device invalidates the refresh token of the first. Sessions keep the
newest pair internally, so callers should not hold on to RefreshToken()
values across calls.

# Errors

Failed calls return *APIError carrying the HTTP status, a stable code and a
message. Predefined values can be matched with errors.Is:

	_, err := session.Profile(ctx)
	if errors.Is(err, authsdk.ErrTokenRevoked) {
		// sign in again
	}

The same values are used by the server to write its responses, so the codes
seen here are exactly the ones on the wire.

# Thread Safety

Sessions are safe for concurrent use. When the access token is about to
expire only one goroutine performs the refresh; the others wait and reuse
its result.
*/
package authsdk
