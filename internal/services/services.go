// package services defines interface Service for interacting with the DeviantArt HTTP API
package services

import (
	"context"

	"github.com/desertthunder/dvx/internal/models"
	"golang.org/x/oauth2"
)

// MaxDeviationIDsPerMutation is the DeviantArt API limit on deviationids per
// copy/remove call.
const MaxDeviationIDsPerMutation = 24

// Service defines the interface for gallery providers that can read folder
// contents and apply add/remove mutations to folders.
type Service interface {
	// Authenticate performs OAuth authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Folders retrieves all gallery folders for the authenticated user.
	Folders(ctx context.Context) ([]models.Folder, error)

	// FolderContents retrieves every deviation in a folder, following pagination.
	FolderContents(ctx context.Context, folderID string) ([]models.Deviation, error)

	// CopyDeviations adds the given deviations to the target folder.
	// At most MaxDeviationIDsPerMutation ids per call.
	CopyDeviations(ctx context.Context, targetFolderID string, deviationIDs []string) error

	// RemoveDeviations removes the given deviations from a folder.
	// At most MaxDeviationIDsPerMutation ids per call.
	RemoveDeviations(ctx context.Context, folderID string, deviationIDs []string) error

	// CheckToken verifies the current session is valid.
	CheckToken(ctx context.Context) error

	// Name returns the name of the service (e.g., "DeviantArt")
	Name() string
}

// OAuthService extends Service for providers using server-side OAuth flows.
type OAuthService interface {
	Service

	// GetAuthURL returns the OAuth2 authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the underlying OAuth2 config for callback handling.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authenticates with an already-issued token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error

	// CurrentToken returns the active token, refreshed if necessary.
	// DeviantArt rotates refresh tokens, so callers persist this after use.
	CurrentToken() (*oauth2.Token, error)
}
