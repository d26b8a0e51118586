// DeviantArt API implementation of [Service]
//
// Response types based on https://www.deviantart.com/developers/http/v1/20210526
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	deviantartAuthURL  = "https://www.deviantart.com/oauth2/authorize"
	deviantartTokenURL = "https://www.deviantart.com/oauth2/token"
	deviantartBaseURL  = "https://www.deviantart.com/api/v1/oauth2"

	foldersPageLimit  = 50
	contentsPageLimit = 24

	// The API throttles around 3 requests per second.
	requestInterval = 350 * time.Millisecond
)

type daStats struct {
	Comments   int `json:"comments"`
	Favourites int `json:"favourites"`
}

// DADeviation represents a deviation object returned by gallery endpoints.
type DADeviation struct {
	DeviationID   string  `json:"deviationid"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	PublishedTime string  `json:"published_time"` // unix seconds, as a string
	Stats         daStats `json:"stats"`
}

// DAFolder represents a gallery folder.
type DAFolder struct {
	FolderID string  `json:"folderid"`
	Name     string  `json:"name"`
	Parent   *string `json:"parent"`
	Size     int     `json:"size"`
}

// DAFolderPage represents a paginated response from /gallery/folders.
type DAFolderPage struct {
	Results    []DAFolder `json:"results"`
	HasMore    bool       `json:"has_more"`
	NextOffset *int       `json:"next_offset"`
}

// DADeviationPage represents a paginated response from /gallery/{folderid}.
type DADeviationPage struct {
	Results    []DADeviation `json:"results"`
	HasMore    bool          `json:"has_more"`
	NextOffset *int          `json:"next_offset"`
}

type daMutationResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Deviation converts the API object to the [models.Deviation] DTO.
func (d DADeviation) Deviation(folderID string) models.Deviation {
	dev := models.Deviation{
		ID:         d.DeviationID,
		Title:      d.Title,
		FolderID:   folderID,
		URL:        d.URL,
		Favourites: d.Stats.Favourites,
	}
	if secs, err := strconv.ParseInt(d.PublishedTime, 10, 64); err == nil {
		dev.PublishedAt = time.Unix(secs, 0).UTC()
	}
	return dev
}

// Folder converts the API object to the [models.Folder] DTO.
func (f DAFolder) Folder() models.Folder {
	folder := models.Folder{
		ID:   f.FolderID,
		Name: f.Name,
		Size: f.Size,
	}
	if f.Parent != nil {
		folder.Parent = *f.Parent
	}
	return folder
}

// DeviantArtService implements the Service interface for DeviantArt API interactions.
// Uses [oauth2] for authentication and paces requests with a [rate.Limiter].
type DeviantArtService struct {
	config      *oauth2.Config
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	limiter     *rate.Limiter
	credentials map[string]string
	baseURL     string
}

// NewDeviantArtService creates a new DeviantArt service with the given OAuth2 credentials.
func NewDeviantArtService(credentials map[string]string) (*DeviantArtService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"browse", "gallery"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  deviantartAuthURL,
			TokenURL: deviantartTokenURL,
		},
	}

	return &DeviantArtService{
		config:      config,
		httpClient:  http.DefaultClient,
		limiter:     rate.NewLimiter(rate.Every(requestInterval), 1),
		credentials: credentials,
		baseURL:     deviantartBaseURL,
	}, nil
}

// SetBaseURL overrides the API base URL. Exposed for tests.
func (s *DeviantArtService) SetBaseURL(u string) {
	s.baseURL = strings.TrimSuffix(u, "/")
}

// Authenticate performs OAuth2 authentication with DeviantArt.
//
// Expects one of "access_token", "refresh_token", or "auth_code" in credentials.
// A bare refresh token forces an immediate refresh on first use.
func (s *DeviantArtService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		token := &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
		}
		return s.OAuthenticate(ctx, token)
	}

	if refreshToken, ok := credentials["refresh_token"]; ok && refreshToken != "" {
		token := &oauth2.Token{
			RefreshToken: refreshToken,
			Expiry:       time.Now().Add(-time.Minute),
		}
		return s.OAuthenticate(ctx, token)
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("failed to exchange auth code: %w", err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token, refresh_token, or auth_code", shared.ErrMissingCredentials)
}

func (s *DeviantArtService) Name() string {
	return "DeviantArt"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *DeviantArtService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the underlying OAuth2 config.
func (s *DeviantArtService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// OAuthenticate authenticates with an already-issued token.
func (s *DeviantArtService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", shared.ErrInvalidCredentials)
	}
	s.tokenSource = s.config.TokenSource(ctx, token)
	s.httpClient = oauth2.NewClient(ctx, s.tokenSource)
	return nil
}

// CurrentToken returns the active token, refreshed if necessary.
func (s *DeviantArtService) CurrentToken() (*oauth2.Token, error) {
	if s.tokenSource == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	token, err := s.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return token, nil
}

// doRequest performs an authenticated, rate-limited request against the API.
//
// GET requests carry params in the query string; POST requests send them form-encoded.
func (s *DeviantArtService) doRequest(ctx context.Context, method, endpoint string, params url.Values, result any) error {
	if s.tokenSource == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	apiURL := s.baseURL + endpoint

	var req *http.Request
	var err error

	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, apiURL, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		if len(params) > 0 {
			apiURL += "?" + params.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, apiURL, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrGalleryNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Folders retrieves all gallery folders, following pagination.
func (s *DeviantArtService) Folders(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	offset := 0

	for {
		params := url.Values{}
		params.Set("calculate_size", "1")
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(foldersPageLimit))

		var page DAFolderPage
		if err := s.doRequest(ctx, http.MethodGet, "/gallery/folders", params, &page); err != nil {
			return nil, err
		}

		for _, f := range page.Results {
			folders = append(folders, f.Folder())
		}

		if !page.HasMore || page.NextOffset == nil {
			break
		}
		offset = *page.NextOffset
	}

	return folders, nil
}

// FolderContents retrieves every deviation in a folder, following pagination.
func (s *DeviantArtService) FolderContents(ctx context.Context, folderID string) ([]models.Deviation, error) {
	if folderID == "" {
		return nil, fmt.Errorf("%w: folder id is required", shared.ErrMissingArgument)
	}

	var deviations []models.Deviation
	offset := 0

	for {
		params := url.Values{}
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(contentsPageLimit))
		params.Set("mature_content", "1")

		var page DADeviationPage
		if err := s.doRequest(ctx, http.MethodGet, "/gallery/"+folderID, params, &page); err != nil {
			return nil, err
		}

		for _, d := range page.Results {
			if d.DeviationID == "" {
				continue
			}
			deviations = append(deviations, d.Deviation(folderID))
		}

		if !page.HasMore || page.NextOffset == nil {
			break
		}
		offset = *page.NextOffset
	}

	return deviations, nil
}

// CopyDeviations adds deviations to the target folder via /gallery/folders/copy_deviations.
func (s *DeviantArtService) CopyDeviations(ctx context.Context, targetFolderID string, deviationIDs []string) error {
	if err := validateMutation(targetFolderID, deviationIDs); err != nil {
		return err
	}

	params := url.Values{}
	params.Set("target_folderid", targetFolderID)
	for _, id := range deviationIDs {
		params.Add("deviationids[]", id)
	}

	var resp daMutationResponse
	if err := s.doRequest(ctx, http.MethodPost, "/gallery/folders/copy_deviations", params, &resp); err != nil {
		return err
	}
	return mutationError("copy", resp)
}

// RemoveDeviations removes deviations from a folder via /gallery/folders/remove_deviations.
func (s *DeviantArtService) RemoveDeviations(ctx context.Context, folderID string, deviationIDs []string) error {
	if err := validateMutation(folderID, deviationIDs); err != nil {
		return err
	}

	params := url.Values{}
	params.Set("folderid", folderID)
	for _, id := range deviationIDs {
		params.Add("deviationids[]", id)
	}

	var resp daMutationResponse
	if err := s.doRequest(ctx, http.MethodPost, "/gallery/folders/remove_deviations", params, &resp); err != nil {
		return err
	}
	return mutationError("remove", resp)
}

// CheckToken verifies the session via the /placebo endpoint.
func (s *DeviantArtService) CheckToken(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/placebo", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("%w: placebo status %q", shared.ErrNotAuthenticated, resp.Status)
	}
	return nil
}

func validateMutation(folderID string, deviationIDs []string) error {
	if folderID == "" {
		return fmt.Errorf("%w: folder id is required", shared.ErrMissingArgument)
	}
	if len(deviationIDs) == 0 {
		return fmt.Errorf("%w: no deviation ids provided", shared.ErrMissingArgument)
	}
	if len(deviationIDs) > MaxDeviationIDsPerMutation {
		return fmt.Errorf("%w: at most %d deviation ids per mutation", shared.ErrInvalidArgument, MaxDeviationIDsPerMutation)
	}
	return nil
}

// mutationError maps an unsuccessful mutation response to a typed error.
//
// The API reports mutations against ids already in (or absent from) the target
// folder as unsuccessful; those are no-ops for reconciliation purposes.
func mutationError(op string, resp daMutationResponse) error {
	if resp.Success {
		return nil
	}
	desc := strings.ToLower(resp.ErrorDescription)
	if strings.Contains(desc, "already") || strings.Contains(desc, "not found") || strings.Contains(desc, "not in") {
		return fmt.Errorf("%w: %s: %s", shared.ErrNoOp, op, resp.ErrorDescription)
	}
	return fmt.Errorf("%w: %s failed: %s", shared.ErrAPIRequest, op, resp.ErrorDescription)
}
