package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"biorhythm-api/internal/config"
	"biorhythm-api/internal/database"
)

// testEnv bundles everything a handler test needs: an in-memory
// database behind the full router (middleware included) and a valid
// bearer token.
type testEnv struct {
	db     *database.DB
	server http.Handler
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(database.DefaultConfig(":memory:"), log)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	account, err := db.CreateAccount(ctx, "tester", "test-password", nil, true)
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	issued, err := db.IssueToken(ctx, account.ID, "test")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	cfg := &config.Config{
		Port:         8080,
		Env:          config.EnvDevelopment,
		DatabasePath: ":memory:",
		LogLevel:     "error",
		LogFormat:    "text",
	}

	handlers := NewHandlers(db, cfg, log)

	return &testEnv{
		db:     db,
		server: SetupRoutes(handlers, cfg, log),
		token:  issued.Plaintext,
	}
}

// do sends an authenticated request through the router and decodes the
// response envelope.
func (env *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	return env.doWithAuth(t, method, path, body, "Bearer "+env.token)
}

func (env *testEnv) doWithAuth(t *testing.T, method, path string, body interface{}, authorization string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	var resp Response
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}

	return rec, resp
}

// dataMap re-decodes the data field of an envelope as a generic map.
func dataMap(t *testing.T, resp Response) map[string]interface{} {
	t.Helper()

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode data as map: %v", err)
	}
	return m
}

// createPerson creates a person through the API and returns its ID.
func (env *testEnv) createPerson(t *testing.T, name, birthdate string) int64 {
	t.Helper()

	rec, resp := env.do(t, http.MethodPost, "/api/v1/people", map[string]string{
		"name":      name,
		"birthdate": birthdate,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create person status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return int64(dataMap(t, resp)["id"].(float64))
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	// No token required.
	rec, resp := env.doWithAuth(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !resp.Success {
		t.Error("health response success = false")
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "garbage", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc123", http.StatusUnauthorized},
		{"unknown token", "Bearer bio_0000000000000000", http.StatusUnauthorized},
		{"valid bearer", "Bearer " + env.token, http.StatusOK},
		{"valid token scheme", "Token " + env.token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := env.doWithAuth(t, http.MethodGet, "/api/v1/people", nil, tt.authorization)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestIssueTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.doWithAuth(t, http.MethodPost, "/api/v1/auth/token", map[string]string{
		"username": "tester",
		"password": "test-password",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	data := dataMap(t, resp)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("token issuance returned no token")
	}

	// The fresh token must authenticate requests.
	rec, _ = env.doWithAuth(t, http.MethodGet, "/api/v1/me", nil, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Errorf("fresh token status = %d, want 200", rec.Code)
	}

	// Wrong password is a uniform 401.
	rec, resp = env.doWithAuth(t, http.MethodPost, "/api/v1/auth/token", map[string]string{
		"username": "tester",
		"password": "wrong",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
	if resp.Error == nil || resp.Error.Message != "Invalid credentials" {
		t.Errorf("wrong password error = %+v", resp.Error)
	}
}

func TestPersonCRUDViaAPI(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Maja Larsen", "1990-01-15")

	rec, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/people/%d", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	data := dataMap(t, resp)
	if data["name"] != "Maja Larsen" || data["birthdate"] != "1990-01-15" {
		t.Errorf("get data = %v", data)
	}

	rec, _ = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/people/%d", id), map[string]string{
		"name":      "Maja L. Larsen",
		"birthdate": "1990-01-15",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/people/%d", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/people/%d", id), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreatePersonValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"birthdate": "1990-01-15"}},
		{"missing birthdate", map[string]string{"name": "No Birthdate"}},
		{"malformed birthdate", map[string]string{"name": "Bad Date", "birthdate": "15/01/1990"}},
		{"invalid email", map[string]string{"name": "Bad Email", "birthdate": "1990-01-15", "email": "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, http.MethodPost, "/api/v1/people", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error = %+v, want VALIDATION_ERROR", resp.Error)
			}
		})
	}
}

func TestBirthdateConflictViaAPI(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Niels", "1990-01-15")

	days := 5
	rec, _ := env.do(t, http.MethodPost, "/api/v1/calculations/calculate", map[string]interface{}{
		"person_id":  id,
		"days":       days,
		"start_date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("calculate status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, resp := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/people/%d", id), map[string]string{
		"name":      "Niels",
		"birthdate": "1991-06-01",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("birthdate change status = %d, want 409", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "CONFLICT" {
		t.Errorf("error = %+v, want CONFLICT", resp.Error)
	}
}

func TestCalculate(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Ada", "1990-01-15")

	days := 30
	rec, resp := env.do(t, http.MethodPost, "/api/v1/calculations/calculate", map[string]interface{}{
		"person_id":  id,
		"days":       days,
		"start_date": "2024-01-01",
		"notes":      "january batch",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	data := dataMap(t, resp)
	if got := int(data["data_points_created"].(float64)); got != days {
		t.Errorf("data_points_created = %d, want %d", got, days)
	}

	dateRange := data["date_range"].(map[string]interface{})
	if dateRange["start"] != "2024-01-01" || dateRange["end"] != "2024-01-30" {
		t.Errorf("date_range = %v", dateRange)
	}

	calc := data["calculation"].(map[string]interface{})
	calcID := int64(calc["id"].(float64))

	// The stored points are queryable and within range.
	rec, resp = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/data-points/?calculation_id=%d", calcID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list data points status = %d", rec.Code)
	}
	listing := dataMap(t, resp)
	if got := int(listing["count"].(float64)); got != days {
		t.Errorf("data point count = %d, want %d", got, days)
	}

	results := listing["results"].([]interface{})
	for _, raw := range results {
		point := raw.(map[string]interface{})
		for _, cycle := range []string{"physical", "emotional", "intellectual"} {
			v := point[cycle].(float64)
			if v < -1.0 || v > 1.0 {
				t.Errorf("point %v %s = %v outside [-1, 1]", point["date"], cycle, v)
			}
		}
	}
}

func TestCalculateKnownValues(t *testing.T) {
	env := newTestEnv(t)

	// Born 1990-01-15, 2024-01-01 is day 12404.
	id := env.createPerson(t, "Reference", "1990-01-15")

	days := 1
	rec, resp := env.do(t, http.MethodPost, "/api/v1/calculations/calculate", map[string]interface{}{
		"person_id":  id,
		"days":       days,
		"start_date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	calc := dataMap(t, resp)["calculation"].(map[string]interface{})
	calcID := int64(calc["id"].(float64))

	rec, resp = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/data-points/?calculation_id=%d", calcID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	results := dataMap(t, resp)["results"].([]interface{})
	if len(results) != 1 {
		t.Fatalf("results = %d rows, want 1", len(results))
	}
	point := results[0].(map[string]interface{})
	if got := int(point["days_alive"].(float64)); got != 12404 {
		t.Errorf("days_alive = %d, want 12404", got)
	}
}

func TestCalculateValidation(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Ada", "1990-01-15")

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{"missing person_id", map[string]interface{}{"days": 10}, http.StatusBadRequest},
		{"unknown person", map[string]interface{}{"person_id": 99999, "days": 10}, http.StatusNotFound},
		{"zero days", map[string]interface{}{"person_id": id, "days": 0}, http.StatusBadRequest},
		{"too many days", map[string]interface{}{"person_id": id, "days": 3651}, http.StatusBadRequest},
		{"bad start_date", map[string]interface{}{"person_id": id, "start_date": "01/01/2024"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := env.do(t, http.MethodPost, "/api/v1/calculations/calculate", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d\nbody: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestListPeoplePagination(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		env.createPerson(t, fmt.Sprintf("Person %02d", i), "1990-01-15")
	}

	rec, resp := env.do(t, http.MethodGet, "/api/v1/people/?page=2&page_size=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	data := dataMap(t, resp)
	if got := int(data["count"].(float64)); got != 5 {
		t.Errorf("count = %d, want 5", got)
	}
	if got := int(data["page"].(float64)); got != 2 {
		t.Errorf("page = %d, want 2", got)
	}
	results := data["results"].([]interface{})
	if len(results) != 2 {
		t.Errorf("page rows = %d, want 2", len(results))
	}
	// Ordered by name, so page 2 starts at the third person.
	first := results[0].(map[string]interface{})
	if first["name"] != "Person 02" {
		t.Errorf("first row on page 2 = %v, want Person 02", first["name"])
	}
}

func TestPersonDataEndpoint(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Lena", "1990-01-15")

	rec, _ := env.do(t, http.MethodPost, "/api/v1/calculations/calculate", map[string]interface{}{
		"person_id":  id,
		"days":       10,
		"start_date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("calculate status = %d", rec.Code)
	}

	rec, resp := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/people/%d/data?start_date=2024-01-03&end_date=2024-01-05", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	data := dataMap(t, resp)
	if got := int(data["data_points"].(float64)); got != 3 {
		t.Errorf("data_points = %d, want 3", got)
	}

	dateRange := data["date_range"].(map[string]interface{})
	if dateRange["start"] != "2024-01-03" || dateRange["end"] != "2024-01-05" {
		t.Errorf("date_range = %v", dateRange)
	}

	// Chronological order
	results := data["results"].([]interface{})
	first := results[0].(map[string]interface{})
	last := results[len(results)-1].(map[string]interface{})
	if first["date"] != "2024-01-03" || last["date"] != "2024-01-05" {
		t.Errorf("order = %v..%v, want ascending", first["date"], last["date"])
	}
}

func TestCriticalOnlyFilter(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Critical", "1990-01-15")

	// A full physical cycle contains exactly two physical critical days.
	rec, _ := env.do(t, http.MethodPost, "/api/v1/calculations/calculate", map[string]interface{}{
		"person_id":  id,
		"days":       23,
		"start_date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("calculate status = %d", rec.Code)
	}

	rec, resp := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/data-points/?person_id=%d&critical_only=true", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	results := dataMap(t, resp)["results"].([]interface{})
	if len(results) == 0 {
		t.Fatal("critical_only returned no rows over a full cycle")
	}
	for _, raw := range results {
		point := raw.(map[string]interface{})
		if point["is_physical_critical"] != true &&
			point["is_emotional_critical"] != true &&
			point["is_intellectual_critical"] != true {
			t.Errorf("non-critical point %v in critical_only listing", point["date"])
		}
	}
}

func TestPersonStatisticsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Greta", "1990-01-15")

	// Empty store first: zero counts, no error.
	rec, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/people/%d/statistics", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty stats status = %d", rec.Code)
	}
	stats := dataMap(t, resp)["statistics"].(map[string]interface{})
	if got := int(stats["total_data_points"].(float64)); got != 0 {
		t.Errorf("empty total_data_points = %d, want 0", got)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/v1/calculations/calculate", map[string]interface{}{
		"person_id":  id,
		"days":       30,
		"start_date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("calculate status = %d", rec.Code)
	}

	rec, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/people/%d/statistics", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	stats = dataMap(t, resp)["statistics"].(map[string]interface{})
	if got := int(stats["total_data_points"].(float64)); got != 30 {
		t.Errorf("total_data_points = %d, want 30", got)
	}
	physical := stats["physical"].(map[string]interface{})
	if physical["min"].(float64) < -1.0 || physical["max"].(float64) > 1.0 {
		t.Errorf("physical min/max outside [-1, 1]: %v", physical)
	}
}

func TestGlobalStatisticsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Solo", "1990-01-15")
	rec, _ := env.do(t, http.MethodPost, "/api/v1/calculations/calculate", map[string]interface{}{
		"person_id":  id,
		"days":       7,
		"start_date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("calculate status = %d", rec.Code)
	}

	rec, resp := env.do(t, http.MethodGet, "/api/v1/statistics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	data := dataMap(t, resp)
	if got := int(data["total_people"].(float64)); got != 1 {
		t.Errorf("total_people = %d, want 1", got)
	}
	if got := int(data["total_data_points"].(float64)); got != 7 {
		t.Errorf("total_data_points = %d, want 7", got)
	}
}

func TestDeleteCalculationCascadesViaAPI(t *testing.T) {
	env := newTestEnv(t)

	id := env.createPerson(t, "Erik", "1990-01-15")
	rec, resp := env.do(t, http.MethodPost, "/api/v1/calculations/calculate", map[string]interface{}{
		"person_id":  id,
		"days":       5,
		"start_date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("calculate status = %d", rec.Code)
	}
	calc := dataMap(t, resp)["calculation"].(map[string]interface{})
	calcID := int64(calc["id"].(float64))

	rec, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/calculations/%d", calcID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, resp = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/data-points/?calculation_id=%d", calcID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if got := int(dataMap(t, resp)["count"].(float64)); got != 0 {
		t.Errorf("points after delete = %d, want 0", got)
	}
}

func TestCurrentAccountEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	data := dataMap(t, resp)
	if data["username"] != "tester" {
		t.Errorf("username = %v, want tester", data["username"])
	}
	// The password hash must never appear in the payload.
	if _, leaked := data["password_hash"]; leaked {
		t.Error("password_hash leaked in /me payload")
	}
}
