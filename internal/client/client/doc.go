// Package client contains the transport to the Say What profile backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) for the three
//     calls of the /settings/{id} endpoint: conditional GET, conditional PUT
//     and the unauthenticated creation POST.
//  2. A concrete net/http implementation (see HTTPClient).
//
// Responses are returned as-is: status handling (304/403/404/412 ...) is the
// caller's business. Transport failures are reported as ErrUnavailable so the
// caller can treat them like a failed response.
//
// # Error Handling
//
// Sentinel errors can be matched with errors.Is: ErrUnavailable, ErrBadRequest.
package client
