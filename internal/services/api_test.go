package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected trimmed baseURL, got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != deviantartBaseURL {
				t.Errorf("expected DeviantArt API base, got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/placebo" {
					t.Errorf("expected path '/placebo', got %s", r.URL.Path)
				}
				if r.URL.Query().Get("limit") != "5" {
					t.Errorf("expected query to be forwarded, got %s", r.URL.RawQuery)
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			query := url.Values{}
			query.Set("limit", "5")

			resp, err := srv.Get(context.Background(), "/placebo", query)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be detected as JSON")
			}

			data, ok := resp.JSONData.(map[string]any)
			if !ok || data["status"] != "success" {
				t.Errorf("unexpected JSON data: %v", resp.JSONData)
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not json</html>"))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/page", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if resp.IsJSON {
				t.Error("expected response not to be detected as JSON")
			}
			if string(resp.Body) != "<html>not json</html>" {
				t.Errorf("unexpected body: %s", resp.Body)
			}
		})

		t.Run("Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			srv := NewAPIService(server.URL, nil)
			if _, err := srv.Get(ctx, "/placebo", nil); err == nil {
				t.Error("expected error with canceled context")
			}
		})
	})

	t.Run("Post", func(t *testing.T) {
		t.Run("Form Encoded", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/x-www-form-urlencoded") {
					t.Errorf("expected form content type, got %s", ct)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if got := r.PostForm["deviationids[]"]; len(got) != 2 {
					t.Errorf("expected repeated form values, got %v", got)
				}

				json.NewEncoder(w).Encode(map[string]bool{"success": true})
			}))
			defer server.Close()

			form := url.Values{}
			form.Set("target_folderid", "f-1")
			form.Add("deviationids[]", "d-1")
			form.Add("deviationids[]", "d-2")

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Post(context.Background(), "/gallery/folders/copy_deviations", form)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !resp.IsJSON {
				t.Error("expected JSON response")
			}
		})

		t.Run("Server Error Status Is Preserved", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error": "invalid_request"}`))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Post(context.Background(), "/gallery/folders/copy_deviations", url.Values{})
			if err != nil {
				t.Fatalf("expected no transport error, got %v", err)
			}

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", resp.StatusCode)
			}
		})
	})
}
