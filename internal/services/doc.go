// Package services defines the [Service] interface for gallery providers and implements it for the DeviantArt API.
//
// # Service Interface
//
// Gallery reads and folder mutations go through a common abstraction so the
// sync engine never touches the wire format directly.
//
// # DeviantArt Implementation
//
// [DeviantArtService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2] token source refreshes expired access tokens using the refresh
// token; DeviantArt rotates refresh tokens on every exchange, so callers persist
// [OAuthService.CurrentToken] after each command.
//
// Requests are paced with a [rate.Limiter] because the API throttles aggressively.
// Folder listings and folder contents follow offset/has_more/next_offset
// pagination until exhausted. Folder mutations (copy_deviations,
// remove_deviations) accept at most 24 ids per call.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrGalleryNotFound] : folder id not found
//   - [shared.ErrNoOp] : mutation targeted an id already in (or absent from) the folder
package services
