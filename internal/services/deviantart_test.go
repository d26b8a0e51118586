package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/dvx/internal/shared"
)

// newTestService builds an authenticated service pointed at the given test server.
func newTestService(t *testing.T, server *httptest.Server) *DeviantArtService {
	t.Helper()

	srv, err := NewDeviantArtService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if err := srv.Authenticate(context.Background(), map[string]string{
		"access_token": "test_access_token",
	}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}

	srv.SetBaseURL(server.URL)
	return srv
}

func TestDeviantArtService(t *testing.T) {
	t.Run("NewDeviantArtService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:3000/callback",
			}

			srv, err := NewDeviantArtService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "DeviantArt" {
				t.Errorf("expected service name 'DeviantArt', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewDeviantArtService(map[string]string{
				"client_secret": "test_client_secret",
			})
			if err == nil {
				t.Error("expected error for missing client_id")
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewDeviantArtService(map[string]string{
				"client_id": "test_client_id",
			})
			if err == nil {
				t.Error("expected error for missing client_secret")
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewDeviantArtService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewDeviantArtService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "deviantart.com/oauth2/authorize") {
			t.Error("auth URL should contain DeviantArt authorize endpoint")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewDeviantArtService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("With Access Token", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{
				"access_token": "test_access_token",
			})
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			token, err := srv.CurrentToken()
			if err != nil {
				t.Fatalf("expected current token, got %v", err)
			}
			if token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be kept, got %s", token.AccessToken)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("CurrentToken Before Authenticate", func(t *testing.T) {
		srv, err := NewDeviantArtService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		if _, err := srv.CurrentToken(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Service Interface", func(t *testing.T) {
		srv, err := NewDeviantArtService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ Service = srv
		var _ OAuthService = srv
	})
}

func TestDeviantArtFolders(t *testing.T) {
	t.Run("Follows Pagination", func(t *testing.T) {
		var offsets []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/gallery/folders" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("calculate_size") != "1" {
				t.Error("expected calculate_size=1")
			}

			offset := r.URL.Query().Get("offset")
			offsets = append(offsets, offset)

			if offset == "0" {
				fmt.Fprint(w, `{
					"results": [
						{"folderid": "f-1", "name": "Featured", "parent": null, "size": 3},
						{"folderid": "f-2", "name": "Sketches", "parent": "f-1", "size": 1}
					],
					"has_more": true,
					"next_offset": 50
				}`)
				return
			}
			fmt.Fprint(w, `{
				"results": [{"folderid": "f-3", "name": "Top 20 Favorites", "parent": null, "size": 0}],
				"has_more": false,
				"next_offset": null
			}`)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		folders, err := srv.Folders(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(folders) != 3 {
			t.Fatalf("expected 3 folders across pages, got %d", len(folders))
		}
		if len(offsets) != 2 || offsets[1] != "50" {
			t.Errorf("expected second request at offset 50, got %v", offsets)
		}
		if folders[1].Parent != "f-1" {
			t.Errorf("expected parent to be mapped, got %q", folders[1].Parent)
		}
		if folders[2].Name != "Top 20 Favorites" {
			t.Errorf("unexpected folder name %q", folders[2].Name)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		if _, err := srv.Folders(context.Background()); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})
}

func TestDeviantArtFolderContents(t *testing.T) {
	t.Run("Maps Deviations", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/gallery/f-1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			fmt.Fprint(w, `{
				"results": [
					{
						"deviationid": "d-1",
						"title": "Sunset",
						"url": "https://example.com/d-1",
						"published_time": "1700000000",
						"stats": {"comments": 2, "favourites": 41}
					},
					{"title": "no id, skipped"}
				],
				"has_more": false,
				"next_offset": null
			}`)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		deviations, err := srv.FolderContents(context.Background(), "f-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(deviations) != 1 {
			t.Fatalf("expected 1 deviation, got %d", len(deviations))
		}

		d := deviations[0]
		if d.ID != "d-1" || d.Title != "Sunset" || d.FolderID != "f-1" {
			t.Errorf("unexpected deviation mapping: %+v", d)
		}
		if d.Favourites != 41 {
			t.Errorf("expected 41 favourites, got %d", d.Favourites)
		}
		if !d.PublishedAt.Equal(time.Unix(1700000000, 0).UTC()) {
			t.Errorf("unexpected published time %v", d.PublishedAt)
		}
	})

	t.Run("Missing Folder ID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		srv := newTestService(t, server)
		if _, err := srv.FolderContents(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Folder Not Found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		if _, err := srv.FolderContents(context.Background(), "missing"); !errors.Is(err, shared.ErrGalleryNotFound) {
			t.Errorf("expected ErrGalleryNotFound, got %v", err)
		}
	})
}

func TestDeviantArtMutations(t *testing.T) {
	ids := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("d-%d", i)
		}
		return out
	}

	t.Run("CopyDeviations", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/gallery/folders/copy_deviations" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.PostForm.Get("target_folderid") != "f-dest" {
				t.Errorf("expected target folder, got %q", r.PostForm.Get("target_folderid"))
			}
			if got := r.PostForm["deviationids[]"]; len(got) != 2 {
				t.Errorf("expected 2 deviation ids, got %v", got)
			}
			fmt.Fprint(w, `{"success": true}`)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		if err := srv.CopyDeviations(context.Background(), "f-dest", []string{"d-1", "d-2"}); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("RemoveDeviations", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/gallery/folders/remove_deviations" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.PostForm.Get("folderid") != "f-dest" {
				t.Errorf("expected folder id, got %q", r.PostForm.Get("folderid"))
			}
			fmt.Fprint(w, `{"success": true}`)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		if err := srv.RemoveDeviations(context.Background(), "f-dest", []string{"d-1"}); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Too Many IDs", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("request should not reach the server")
		}))
		defer server.Close()

		srv := newTestService(t, server)
		err := srv.CopyDeviations(context.Background(), "f-dest", ids(MaxDeviationIDsPerMutation+1))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Empty IDs", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("request should not reach the server")
		}))
		defer server.Close()

		srv := newTestService(t, server)
		err := srv.RemoveDeviations(context.Background(), "f-dest", nil)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Already Present Is NoOp", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": false, "error": "invalid_request", "error_description": "Deviation already in folder"}`)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		err := srv.CopyDeviations(context.Background(), "f-dest", []string{"d-1"})
		if !errors.Is(err, shared.ErrNoOp) {
			t.Errorf("expected ErrNoOp, got %v", err)
		}
	})

	t.Run("Other Failures Are API Errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": false, "error": "invalid_request", "error_description": "Folder is locked"}`)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		err := srv.RemoveDeviations(context.Background(), "f-dest", []string{"d-1"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestDeviantArtCheckToken(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/placebo" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			fmt.Fprint(w, `{"status": "success"}`)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		if err := srv.CheckToken(context.Background()); err != nil {
			t.Errorf("expected token check to pass, got %v", err)
		}
	})

	t.Run("Unexpected Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "error"}`)
		}))
		defer server.Close()

		srv := newTestService(t, server)
		if err := srv.CheckToken(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}
