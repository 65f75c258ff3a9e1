package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/pribylovaa/backoffice-console/internal/clients"
	"github.com/pribylovaa/backoffice-console/internal/config"
	"github.com/pribylovaa/backoffice-console/internal/models"
	"github.com/pribylovaa/backoffice-console/internal/storage/file"
	"github.com/pribylovaa/backoffice-console/internal/storage/memory"
)

func authServer(t *testing.T) *httptest.Server {
	t.Helper()

	at, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42", "exp": time.Now().Add(time.Hour).Unix(), "username": "manager",
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/login":
			var in models.LoginRequest
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(models.TokenPair{AccessToken: at, RefreshToken: "rt"})
		case "/v1/orders":
			if r.Header.Get("Authorization") != "Bearer "+at {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"items":[1,2]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`env: prod
api:
  base_url: %q
storage:
  driver: file
  path: %q
`, baseURL, filepath.Join(dir, "session.json"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_LoginStatusRequestLogout(t *testing.T) {
	srv := authServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "--config", cfgPath, "login", "-u", "manager", "-p", "secret")
	require.NoError(t, err)
	var info models.SessionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.True(t, info.Authenticated)
	require.Equal(t, "home", info.Route)

	// Новый процесс читает пару из файла.
	out, err = run(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.True(t, report.Authenticated)
	require.Equal(t, "manager", report.Username)
	require.Equal(t, clients.BackofficeDisabled, report.Backoffice)

	out, err = run(t, "--config", cfgPath, "request", "get", "/v1/orders")
	require.NoError(t, err)
	require.JSONEq(t, `{"items":[1,2]}`, out)

	out, err = run(t, "--config", cfgPath, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "logged out")

	out, err = run(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.False(t, info.Authenticated)

	_, err = run(t, "--config", cfgPath, "request", "get", "/v1/orders")
	require.Error(t, err)
}

func TestCLI_Status_ReportsBackofficeHealth(t *testing.T) {
	srv := authServer(t)
	cfgPath := writeConfig(t, srv.URL)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	t.Setenv("GRPC_BACKOFFICE_ADDR", lis.Addr().String())

	_, err = run(t, "--config", cfgPath, "login", "-u", "manager", "-p", "secret")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.True(t, report.Authenticated)
	require.Equal(t, clients.BackofficeServing, report.Backoffice)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	out, err = run(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "unavailable", report.Backoffice)
}

func TestCLI_LoginRejected(t *testing.T) {
	srv := authServer(t)
	cfgPath := writeConfig(t, srv.URL)

	_, err := run(t, "--config", cfgPath, "login", "-u", "manager", "-p", "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestCLI_Version(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, appName+" version "+Version))
}

func TestNewStore_Drivers(t *testing.T) {
	kv, err := newStore(context.Background(), config.StorageConfig{Driver: config.StorageMemory})
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, kv)

	kv, err = newStore(context.Background(), config.StorageConfig{
		Driver: config.StorageFile,
		Path:   filepath.Join(t.TempDir(), "s.json"),
	})
	require.NoError(t, err)
	require.IsType(t, &file.Store{}, kv)

	_, err = newStore(context.Background(), config.StorageConfig{Driver: config.StorageRedis, RedisURL: "://bad"})
	require.Error(t, err)
}
