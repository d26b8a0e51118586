package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/dvx/internal/services"
	"github.com/desertthunder/dvx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the DeviantArt API
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	pretty := cmd.Bool("pretty")
	query, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	api, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := api.Get(ctx, path, query)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIPost makes a direct form-encoded POST request to the DeviantArt API
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	pretty := cmd.Bool("pretty")
	form, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	if len(form) == 0 {
		return fmt.Errorf("%w: at least one --param is required", shared.ErrMissingArgument)
	}

	api, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("POST request", "path", path)

	resp, err := api.Post(ctx, path, form)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// apiClient returns a raw API client backed by the OAuth session when one exists.
func (r *Runner) apiClient(ctx context.Context) (*services.APIService, error) {
	oauthSvc, ok := r.deviantart.(services.OAuthService)
	if !ok {
		if r.api == nil {
			return nil, fmt.Errorf("%w: API service not initialized", shared.ErrServiceUnavailable)
		}
		return r.api, nil
	}

	token, err := oauthSvc.CurrentToken()
	if err != nil {
		return nil, fmt.Errorf("%w: run 'dvx auth login' first", shared.ErrNotAuthenticated)
	}

	return services.NewAPIService("", oauthSvc.GetOAuthConfig().Client(ctx, token)), nil
}

// parseParams converts repeated key=value flags into url.Values.
func parseParams(params []string) (url.Values, error) {
	values := url.Values{}
	for _, p := range params {
		key, value, found := strings.Cut(p, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: param %q must be key=value", shared.ErrInvalidFlag, p)
		}
		values.Add(key, value)
	}
	return values, nil
}

// apiCommand handles direct DeviantArt API calls
func apiCommand(r *Runner) *cli.Command {
	paramFlag := &cli.StringSliceFlag{
		Name:    "param",
		Aliases: []string{"p"},
		Usage:   "Request parameter as key=value (repeatable)",
	}
	prettyFlag := &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Pretty-print output",
		Value: true,
	}

	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls against the DeviantArt API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags:  []cli.Flag{paramFlag, prettyFlag},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct form-encoded POST",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags:  []cli.Flag{paramFlag, prettyFlag},
				Action: r.APIPost,
			},
		},
	}
}
