package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/dvx/internal/server"
	"github.com/desertthunder/dvx/internal/services"
	"github.com/desertthunder/dvx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization code flow for DeviantArt.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens which are persisted to config.toml.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath != "" {
		r.configPath = configPath
	}

	config := r.config
	if config.Credentials.DeviantArt.ClientID == "" || config.Credentials.DeviantArt.ClientSecret == "" {
		return fmt.Errorf("%w: DeviantArt client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	oauthSvc, err := r.oauthService()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, config, oauthSvc, "authorization")
	if err != nil {
		return err
	}

	if err := oauthSvc.OAuthenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: dvx gallery folders\n")

	return nil
}

// AuthStatus checks whether the stored access token is still valid.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	if r.deviantart == nil {
		return fmt.Errorf("%w: DeviantArt service not initialized", shared.ErrServiceUnavailable)
	}

	if err := r.deviantart.CheckToken(ctx); err != nil {
		if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
			r.writePlain("✗ Not authenticated\n")
			r.writePlain("Run 'dvx auth login' to authorize.\n")
			return nil
		}
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	r.writePlain("✓ Authenticated\n")
	if expiry := r.config.Credentials.DeviantArt.TokenExpiry; !expiry.IsZero() {
		r.writePlain("Token expires: %s\n", expiry.Format(time.RFC1123))
	}
	return nil
}

// AuthRefresh forces a token refresh using the stored refresh token.
//
// DeviantArt rotates refresh tokens on every exchange, so the rotated pair is
// written back to the config file.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	oauthSvc, err := r.oauthService()
	if err != nil {
		return err
	}

	refreshToken := r.config.Credentials.DeviantArt.RefreshToken
	if refreshToken == "" {
		return fmt.Errorf("%w: run 'dvx auth login' first", shared.ErrNoRefreshToken)
	}

	r.logger.Info("refreshing access token")

	if err := oauthSvc.Authenticate(ctx, map[string]string{"refresh_token": refreshToken}); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	token, err := oauthSvc.CurrentToken()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Token refreshed")
	r.writePlain("✓ Tokens saved to %s\n", r.configPath)
	return nil
}

// oauthService asserts the configured service supports the OAuth flow.
func (r *Runner) oauthService() (services.OAuthService, error) {
	if r.deviantart == nil {
		return nil, fmt.Errorf("%w: DeviantArt service not initialized", shared.ErrServiceUnavailable)
	}
	oauthSvc, ok := r.deviantart.(services.OAuthService)
	if !ok {
		return nil, fmt.Errorf("%w: service does not support OAuth", shared.ErrServiceUnavailable)
	}
	return oauthSvc, nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *shared.Config, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for DeviantArt %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var token *oauth2.Token
	var waitErr error

	done := make(chan struct{})
	go func() {
		token, waitErr = oauthHandler.WaitForResult(waitCtx)
		close(done)
	}()

	select {
	case <-done:
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if waitErr != nil {
		if errors.Is(waitErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
		}
		return nil, fmt.Errorf("authorization failed: %w", waitErr)
	}

	if token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return token, nil
}

// handleAuthError checks if an error is a token expiration error and triggers a refresh if possible.
func (r *Runner) handleAuthError(ctx context.Context, err error) (bool, error) {
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	oauthSvc, svcErr := r.oauthService()
	if svcErr != nil {
		return true, svcErr
	}

	refreshToken := r.config.Credentials.DeviantArt.RefreshToken
	if refreshToken == "" {
		return true, fmt.Errorf("%w: token expired and no refresh token saved, run 'dvx auth login'", shared.ErrNoRefreshToken)
	}

	r.writePlainln("⚠ Access token expired. Refreshing...\n")

	if authErr := oauthSvc.Authenticate(ctx, map[string]string{"refresh_token": refreshToken}); authErr != nil {
		return true, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, authErr)
	}

	token, tokenErr := oauthSvc.CurrentToken()
	if tokenErr != nil {
		return true, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, tokenErr)
	}

	if saveErr := r.saveTokens(token); saveErr != nil {
		r.logger.Warn("failed to persist rotated tokens", "error", saveErr)
	}

	r.writePlainln("✓ Token refreshed. Retrying operation...\n")

	return true, nil
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage DeviantArt authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authenticate with DeviantArt using OAuth2",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check current authentication state (calls /placebo)",
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Force a token refresh using the stored refresh token",
				Action: r.AuthRefresh,
			},
		},
	}
}
