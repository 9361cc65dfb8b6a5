// Package common contains shared constants and sentinel errors used across
// RegistaDB components.
package common

// AuthorizationHeaderName is the gRPC metadata key and HTTP header used to carry
// the bearer token on inbound requests.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token inside the authorization value.
const BearerPrefix = "Bearer "

// ContentTypeProtobuf marks request and response bodies encoded with the wire package.
const ContentTypeProtobuf = "application/x-protobuf"
