//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"renthub/internal/auth"
	"renthub/internal/db"
	"renthub/internal/models"
)

const (
	testAppBinary      = "./renthub_test_app" // Name for the test binary
	testAppPort        = "8089"
	testServiceApiPort = "8091"
	testAppURL         = "http://localhost:" + testAppPort
	testServiceApiURL  = "http://localhost:" + testServiceApiPort
	testJwtSecret      = "integration-test-secret"
	testDbName         = "renthub_integration"
	startupTimeout     = 15 * time.Second
	pingEndpoint       = testAppURL + "/api/ping"
)

var (
	mongoURI     string
	testProperty models.Property
	landlord     = models.Principal{UserID: primitive.NewObjectID(), Email: "landlord@example.com", Role: models.RoleLandlord}
	tenant       = models.Principal{UserID: primitive.NewObjectID(), Email: "tenant@example.com", Role: models.RoleTenant}
	admin        = models.Principal{UserID: primitive.NewObjectID(), Email: "admin@example.com", Role: models.RoleAdmin}
)

// TestMain builds the binary, seeds a property and runs the server in "all" mode against MONGO_URI_TEST.
func TestMain(m *testing.M) {
	godotenv.Load()
	mongoURI = os.Getenv("MONGO_URI_TEST")
	if mongoURI == "" {
		log.Println("MONGO_URI_TEST not set; skipping integration tests")
		return
	}

	defer func() {
		_ = os.Remove(testAppBinary)
	}()

	log.Println("Integration Test Setup: Building application...")
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(out))
		os.Exit(1)
	}

	if err := seedTestData(); err != nil {
		log.Printf("Failed to seed test data: %v", err)
		os.Exit(1)
	}
	defer cleanupTestData()

	appCmd := exec.Command(testAppBinary, "serve", "-m", "all")
	appCmd.Env = append(os.Environ(),
		"MONGO_URI="+mongoURI,
		"MONGO_DB_NAME="+testDbName,
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPort,
		"JWT_SECRET="+testJwtSecret,
		"GIN_MODE=release",
		"AUDIT_MODE=queue",
		"ESTIMATE_CACHE_BACKEND=local",
		"AWS_S3_BUCKET=",
		"RATE_LIMIT_SOFT_BUCKET_SIZE=50",
		"RATE_LIMIT_SOFT_REFILL_RATE=50",
		"RATE_LIMIT_HARD_BUCKET_SIZE=100",
		"RATE_LIMIT_HARD_REFILL_RATE=100",
	)
	appCmd.Stderr = os.Stderr
	appCmd.Stdout = os.Stdout
	if err := appCmd.Start(); err != nil {
		log.Printf("Failed to start application: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Println("Integration Test Teardown: Sending SIGTERM...")
		if err := appCmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = appCmd.Process.Kill()
			return
		}
		_, _ = appCmd.Process.Wait()
	}()

	startTime := time.Now()
	ready := false
	for time.Since(startTime) < startupTimeout {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "pong" {
				ready = true
				break
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		return
	}

	exitCode := m.Run()
	log.Printf("Integration Test Teardown: Tests finished with exit code %d.", exitCode)
}

func withTestDB(fn func(ctx context.Context, database *mongo.Database) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	return fn(ctx, client.Database(testDbName))
}

func seedTestData() error {
	return withTestDB(func(ctx context.Context, database *mongo.Database) error {
		if err := database.Drop(ctx); err != nil {
			return err
		}
		if err := db.EnsureIndexes(ctx, database); err != nil {
			return err
		}
		testProperty = models.Property{
			Owner:      landlord.UserID,
			Title:      "Integration cottage",
			Price:      900,
			RentPeriod: models.RentPeriodMonth,
			Available:  true,
		}
		return db.NewPropertyRepository(database).Insert(ctx, &testProperty)
	})
}

func cleanupTestData() {
	if err := withTestDB(func(ctx context.Context, database *mongo.Database) error {
		return database.Drop(ctx)
	}); err != nil {
		log.Printf("Integration Test Teardown: failed to drop test database: %v", err)
	}
}

func tokenFor(t *testing.T, p models.Principal) string {
	t.Helper()
	token, err := auth.GenerateJWT(p.UserID, p.Email, p.Role, testJwtSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// call sends a request and decodes the JSON response into a map.
func call(t *testing.T, method, path string, p *models.Principal, contentType string, body io.Reader) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, testAppURL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *p))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func callJSON(t *testing.T, method, path string, p *models.Principal, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return call(t, method, path, p, "application/json", r)
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	health, err := http.Get(testServiceApiURL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestIntegration_Estimate(t *testing.T) {
	body := fmt.Sprintf(`{"property_id":"%s","check_in":"2030-03-01","check_out":"2030-03-31","currency":"USD"}`, testProperty.ID.Hex())
	code, resp := callJSON(t, http.MethodPost, "/api/rental/calculate", nil, body)
	require.Equal(t, http.StatusOK, code, resp)

	summary := resp["summary"].(map[string]any)
	assert.Equal(t, float64(30), summary["duration_days"])
	discount := resp["discount"].(map[string]any)
	assert.Equal(t, "monthly", discount["type"])
}

// TestIntegration_EscrowFlow walks an application and a cash payment from submission to relisting.
func TestIntegration_EscrowFlow(t *testing.T) {
	body := fmt.Sprintf(`{"property_id":"%s","move_in_date":"2030-03-01","lease_duration":12}`, testProperty.ID.Hex())
	code, app := callJSON(t, http.MethodPost, "/api/applications", &tenant, body)
	require.Equal(t, http.StatusCreated, code, app)
	appID := app["id"].(string)

	code, resp := callJSON(t, http.MethodPost, "/api/applications", &tenant, body)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_pending_application", resp["kind"])

	code, app = callJSON(t, http.MethodPut, "/api/applications/"+appID+"/approve", &landlord, "")
	require.Equal(t, http.StatusOK, code, app)
	assert.Equal(t, "approved", app["status"])

	form := url.Values{"application_id": {appID}, "amount": {"900"}, "payment_method": {"cash"}}
	code, payment := call(t, http.MethodPost, "/api/payments", &tenant, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.Equal(t, http.StatusCreated, code, payment)
	paymentID := payment["id"].(string)
	assert.Equal(t, "pending", payment["status"])

	code, _ = callJSON(t, http.MethodPut, "/api/payments/"+paymentID+"/release", &admin, "")
	assert.Equal(t, http.StatusConflict, code, "release requires a held payment")

	code, payment = callJSON(t, http.MethodPut, "/api/payments/"+paymentID+"/verify", &admin, `{"admin_notes":"cash counted"}`)
	require.Equal(t, http.StatusOK, code, payment)
	assert.Equal(t, "held", payment["status"])

	code, payment = callJSON(t, http.MethodPut, "/api/payments/"+paymentID+"/release", &admin, "")
	require.Equal(t, http.StatusOK, code, payment)
	assert.Equal(t, "released", payment["status"])

	code, resp = callJSON(t, http.MethodPut, "/api/payments/"+paymentID+"/refund", &admin, `{"reason":"too late"}`)
	assert.Equal(t, http.StatusConflict, code, resp)

	code, resp = callJSON(t, http.MethodGet, "/api/properties/"+testProperty.ID.Hex()+"/review-eligibility", &tenant, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["eligible"])

	code, resp = callJSON(t, http.MethodPut, "/api/properties/"+testProperty.ID.Hex()+"/available", &tenant, "")
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, true, resp["available"])

	// Audit events are written by the background worker.
	require.Eventually(t, func() bool {
		code, resp := callJSON(t, http.MethodGet, "/api/event-logs?eventType=payment_released", &admin, "")
		return code == http.StatusOK && resp["total"] == float64(1)
	}, 10*time.Second, 250*time.Millisecond)

	require.Eventually(t, func() bool {
		code, resp := callJSON(t, http.MethodGet, "/api/event-logs/my-activity", &tenant, "")
		total, _ := resp["total"].(float64)
		return code == http.StatusOK && total >= 4
	}, 10*time.Second, 250*time.Millisecond)
}
