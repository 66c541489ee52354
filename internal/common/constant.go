// Package common contains shared constants, sentinel errors and random
// helpers used across credgate components.
package common

// AuthorizationHeaderName carries access, refresh and API-key tokens on HTTP
// requests. A "Bearer " prefix is optional.
const AuthorizationHeaderName = "Authorization"

// ServiceKeyHeaderName is the gRPC metadata key internal callers use to
// authenticate against the introspection service.
const ServiceKeyHeaderName = "x-service-key"

// BearerPrefix is stripped from Authorization values when present.
const BearerPrefix = "Bearer "
