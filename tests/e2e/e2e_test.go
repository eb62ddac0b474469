//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/repository"
)

const e2ePassword = "E2e-Passw0rd!"

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

type campaignResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type targetResponse struct {
	ID            string `json:"id"`
	TrackingToken string `json:"tracking_token"`
	TrackingURL   string `json:"tracking_url"`
}

type templateResponse struct {
	ID         string `json:"id"`
	LandingURL string `json:"landing_url"`
}

type resultsResponse struct {
	Results []struct {
		TargetID string `json:"target_id"`
		Result   string `json:"result"`
	} `json:"results"`
}

func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("PHISHDRILL_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	email := fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano())
	account := register(t, baseURL, email)
	promote(t, dbURL, account.ID)
	token := login(t, baseURL, email)

	var me map[string]string
	if status := doJSON(t, http.MethodGet, baseURL+"/me", token, nil, &me); status != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d", status)
	}
	if !strings.Contains(me["role"], model.RoleAdmin) {
		t.Fatalf("expected Admin in role claim, got %q", me["role"])
	}

	tmpl := createTemplate(t, baseURL, token)
	campaign := createCampaign(t, baseURL, token, tmpl.ID)
	target := addTarget(t, baseURL, token, campaign.ID)

	for _, status := range []string{"scheduled", "active"} {
		var out campaignResponse
		code := doJSON(t, http.MethodPost, baseURL+"/api/v1/campaigns/"+campaign.ID+"/status", token,
			map[string]any{"status": status}, &out)
		if code != http.StatusOK || out.Status != status {
			t.Fatalf("expected %s, got %d/%s", status, code, out.Status)
		}
	}

	assertRedirect(t, baseURL, target.TrackingToken, tmpl.LandingURL)
	waitForResult(t, baseURL, token, campaign.ID, target.ID, "clicked_no_submit")
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func register(t *testing.T, baseURL, email string) registerResponse {
	t.Helper()

	payload := map[string]any{
		"email":     email,
		"firstName": "E2E",
		"lastName":  "Runner",
		"password":  e2ePassword,
	}

	var resp registerResponse
	status := doJSON(t, http.MethodPost, baseURL+"/register-user", "", payload, &resp)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from register, got %d", status)
	}
	if resp.ID == "" {
		t.Fatalf("register response missing id")
	}
	return resp
}

// promote makes the account an Admin on the pro tier directly in the database.
func promote(t *testing.T, dbURL, accountID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer repo.Close()

	if err := repo.AssignRole(ctx, accountID, model.RoleAdmin); err != nil {
		t.Fatalf("assign admin: %v", err)
	}
	if err := repo.UpdateTier(ctx, accountID, model.TierPro, time.Now().UTC()); err != nil {
		t.Fatalf("update tier: %v", err)
	}
}

func login(t *testing.T, baseURL, email string) string {
	t.Helper()

	var resp loginResponse
	status := doJSON(t, http.MethodPost, baseURL+"/login", "",
		map[string]any{"email": email, "password": e2ePassword}, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d", status)
	}
	if resp.AccessToken == "" {
		t.Fatalf("login response missing accessToken")
	}
	return resp.AccessToken
}

func createTemplate(t *testing.T, baseURL, token string) templateResponse {
	t.Helper()

	payload := map[string]any{
		"name":        "E2E invoice",
		"subject":     "Your invoice is ready",
		"body":        "Open the attached invoice.",
		"landing_url": "https://example.com/e2e-caught",
		"difficulty":  "easy",
	}

	var resp templateResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/v1/templates", token, payload, &resp)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from template create, got %d", status)
	}
	return resp
}

func createCampaign(t *testing.T, baseURL, token, templateID string) campaignResponse {
	t.Helper()

	payload := map[string]any{
		"name":        fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		"type":        "email",
		"template_id": templateID,
	}

	var resp campaignResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/v1/campaigns", token, payload, &resp)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from campaign create, got %d", status)
	}
	if resp.Status != "draft" {
		t.Fatalf("expected draft campaign, got %q", resp.Status)
	}
	return resp
}

func addTarget(t *testing.T, baseURL, token, campaignID string) targetResponse {
	t.Helper()

	var resp targetResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/v1/campaigns/"+campaignID+"/targets", token,
		map[string]any{"email": "target@example.com"}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from add target, got %d", status)
	}
	if !strings.HasPrefix(resp.TrackingToken, "trk_") {
		t.Fatalf("unexpected tracking token %q", resp.TrackingToken)
	}
	return resp
}

func assertRedirect(t *testing.T, baseURL, trackingToken, destination string) {
	t.Helper()

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(fmt.Sprintf("%s/t/%s", baseURL, trackingToken))
	if err != nil {
		t.Fatalf("tracking request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if location := resp.Header.Get("Location"); location != destination {
		t.Fatalf("expected Location %q, got %q", destination, location)
	}
}

func waitForResult(t *testing.T, baseURL, token, campaignID, targetID, want string) {
	t.Helper()

	endpoint := fmt.Sprintf("%s/api/v1/campaigns/%s/results", baseURL, campaignID)
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var resp resultsResponse
		status := doJSON(t, http.MethodGet, endpoint, token, nil, &resp)
		if status == http.StatusOK {
			for _, r := range resp.Results {
				if r.TargetID == targetID && r.Result == want {
					return
				}
			}
		}
		time.Sleep(250 * time.Millisecond)
	}

	t.Fatalf("result for target %s did not reach %s in time", targetID, want)
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		buf = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response: %v", err)
		}
	}

	return resp.StatusCode
}

// TestE2ERateLimiting floods /login until the auth bucket answers 429.
func TestE2ERateLimiting(t *testing.T) {
	baseURL := envOrDefault("PHISHDRILL_BASE_URL", "http://localhost:8080")
	client := &http.Client{Timeout: 10 * time.Second}

	payload := []byte(`{"email":"nobody@example.com","password":"not-it"}`)
	var limited *http.Response
	for i := 0; i < 50; i++ {
		resp, err := client.Post(baseURL+"/login", "application/json", bytes.NewReader(payload))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = resp
			break
		}
		resp.Body.Close()
	}

	if limited == nil {
		t.Fatalf("expected 429 from /login after burst, never hit rate limit")
	}
	defer limited.Body.Close()

	if limited.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("missing X-RateLimit-Limit header on 429 response")
	}
	if remaining := limited.Header.Get("X-RateLimit-Remaining"); remaining != "0" {
		t.Errorf("expected X-RateLimit-Remaining=0, got %s", remaining)
	}
	if limited.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header on 429 response")
	}

	var errResp map[string]any
	if err := json.NewDecoder(limited.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode 429 response: %v", err)
	}
	if errResp["error"] == nil {
		t.Error("429 response missing 'error' field")
	}
}

// TestE2ENoSecretsInResponses checks that credentials sent by the client are
// never echoed back.
func TestE2ENoSecretsInResponses(t *testing.T) {
	baseURL := envOrDefault("PHISHDRILL_BASE_URL", "http://localhost:8080")
	client := &http.Client{Timeout: 10 * time.Second}

	secret := "Sup3r-Secret-" + strings.Repeat("x", 16)
	body := fmt.Sprintf(`{"email":"ghost@example.com","password":%q}`, secret)
	resp, err := client.Post(baseURL+"/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if strings.Contains(string(raw), secret) {
		t.Error("SECURITY: login response echoed the password")
	}

	fakeJWT := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ4In0." + strings.Repeat("x", 43)
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/campaigns", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+fakeJWT)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	raw, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", resp.StatusCode)
	}
	if strings.Contains(string(raw), fakeJWT) {
		t.Error("SECURITY: error response leaked the bearer token")
	}
}
