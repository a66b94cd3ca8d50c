// Package common contains shared constants and sentinel errors used across
// gophdrive components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound collaborator requests.
const AccessTokenHeaderName = "access_token"

// GiB is the number of bytes in one capacity unit used by tiers and grants.
const GiB int64 = 1 << 30

// MiB is used only to render human-readable quota messages.
const MiB int64 = 1 << 20
