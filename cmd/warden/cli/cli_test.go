package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/warden-api/warden/internal/app"
	"github.com/warden-api/warden/internal/auth"
)

const testSecret = "c2VjcmV0LXNlY3JldC1zZWNyZXQtc2VjcmV0LXNlY3JldA=="

func testConfig() *app.Config {
	return &app.Config{
		AppEnv:            "test",
		LogFormat:         "json",
		LogLevel:          "error",
		StoreDriver:       app.StoreDriverMemory,
		RedisAddr:         "127.0.0.1:0",
		JWTSecret:         testSecret,
		AuthRenewIn:       time.Hour,
		LoginMaxAttempts:  5,
		LoginWindow:       time.Minute,
		SeedAdminUsername: "admin",
		SeedAdminName:     "Administrator",
		SeedAdminEmail:    "admin@warden.local",
	}
}

func run(t *testing.T, cfg *app.Config, args ...string) (string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	root := NewRootCommand(Options{
		Stdout:     stdout,
		Stderr:     new(bytes.Buffer),
		LoadConfig: func() (*app.Config, error) { return cfg, nil },
	})
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestSecretCommandPrintsEnvLine(t *testing.T) {
	out, err := run(t, testConfig(), "secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "JWT_SECRET="))

	secret := strings.TrimSpace(strings.TrimPrefix(out, "JWT_SECRET="))
	_, err = auth.NewTokens(secret, time.Hour)
	require.NoError(t, err)
}

func TestHashCommandPrintsBcryptHash(t *testing.T) {
	out, err := run(t, testConfig(), "hash", "s3cret")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))

	_, err = run(t, testConfig(), "hash")
	require.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	tokens, err := auth.NewTokens(testSecret, time.Hour)
	require.NoError(t, err)

	out, err := run(t, testConfig(), "token", "42")
	require.NoError(t, err)
	claims, err := tokens.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Nil(t, claims.ExpiresAt)

	out, err = run(t, testConfig(), "token", "7", "2h")
	require.NoError(t, err)
	claims, err = tokens.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	require.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = run(t, testConfig(), "token", "abc")
	require.ErrorContains(t, err, "invalid user id")
	_, err = run(t, testConfig(), "token", "1", "soon")
	require.ErrorContains(t, err, "invalid duration")
}

func TestSeedCommand(t *testing.T) {
	cfg := testConfig()

	_, err := run(t, cfg, "seed")
	require.ErrorContains(t, err, "SEED_ADMIN_PASSWORD")

	out, err := run(t, cfg, "seed", "--password", "admin-password")
	require.NoError(t, err)
	var report app.SeedReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, 3, report.Resources)
	require.Equal(t, 15, report.Permissions)
}

func TestMigrateRequiresPostgres(t *testing.T) {
	_, err := run(t, testConfig(), "migrate")
	require.ErrorContains(t, err, "has no schema")
}

func TestResendRegistrationValidatesID(t *testing.T) {
	_, err := run(t, testConfig(), "jobs", "resend-registration", "0")
	require.ErrorContains(t, err, "invalid user id")
}
