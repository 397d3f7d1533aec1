// Package token keeps the opaque credentials external producers present when
// submitting tasks.
//
// Tokens live as empty files under a directory, the file name being the token
// itself. They never expire. The registry is created lazily: the first List on
// an empty directory generates and persists one token, so callers always see
// at least one.
//
//	reg, err := token.NewRegistry(filepath.Join(root, "tokens"))
//	tokens, err := reg.List(ctx)
//	if reg.Valid(ctx, r.Header.Get("Authorization")) { ... }
//
// Tokens are 32 random bytes from crypto/rand, encoded as unpadded base64url.
// Two processes racing on an empty directory may each create one token; both
// are valid.
package token
