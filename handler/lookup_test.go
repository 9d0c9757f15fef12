package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jeevijay-developers/riskmarshal-office/config"
	"github.com/jeevijay-developers/riskmarshal-office/service"
)

// fakeLookupServer mimics the core API lookup endpoints
func fakeLookupServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/policies/insurers":
			w.Write([]byte(`{"success":true,"data":[{"id":"i1","name":"Acme Insurance"}]}`))
		case r.URL.Path == "/policies/policy-types":
			w.Write([]byte(`{"success":true,"data":[
				{"id":"p1","name":"Individual Health","category":"Health"},
				{"id":"p2","name":"Two Wheeler","category":"Motor"},
				{"id":"p3","name":"Car Package","category":"Motor"}
			]}`))
		case r.URL.Path == "/subagents":
			w.Write([]byte(`{"success":true,"data":[{"id":"s1","name":"South Branch"}]}`))
		case r.URL.Path == "/clients":
			search := r.URL.Query().Get("search")
			if search == "" {
				w.Write([]byte(`{"success":true,"data":[{"id":"c1","name":"Asha Rao"},{"id":"c2","name":"Vikram Shah"}]}`))
				return
			}
			w.Write([]byte(`{"success":true,"data":[{"id":"c2","name":"Vikram Shah"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"Not found"}`))
		}
	}))
}

func newTestLookupHandler(t *testing.T) (*LookupHandler, *httptest.Server) {
	t.Helper()

	ts := fakeLookupServer()
	core := service.NewCoreClient(&config.CoreConfig{BaseURL: ts.URL, TimeoutSeconds: 5})
	lookups := service.NewLookupCache(core, 5*time.Millisecond)
	lookups.Load(context.Background())

	return NewLookupHandler(lookups), ts
}

func TestLookupHandlerInsurers(t *testing.T) {
	handler, ts := newTestLookupHandler(t)
	defer ts.Close()

	router := gin.New()
	router.GET("/lookups/insurers", handler.Insurers)

	req := httptest.NewRequest("GET", "/lookups/insurers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string][]map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response["insurers"]) != 1 {
		t.Errorf("Expected 1 insurer, got %d", len(response["insurers"]))
	}
}

func TestLookupHandlerPolicyTypesGrouped(t *testing.T) {
	handler, ts := newTestLookupHandler(t)
	defer ts.Close()

	router := gin.New()
	router.GET("/lookups/policy-types", handler.PolicyTypes)

	req := httptest.NewRequest("GET", "/lookups/policy-types", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Groups []struct {
			Category string `json:"category"`
			Types    []struct {
				Name string `json:"name"`
			} `json:"types"`
		} `json:"policyTypeGroups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if len(response.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(response.Groups))
	}
	// Motor ranks before Health
	if response.Groups[0].Category != "Motor" {
		t.Errorf("Expected first group 'Motor', got '%s'", response.Groups[0].Category)
	}
	if response.Groups[1].Category != "Health" {
		t.Errorf("Expected second group 'Health', got '%s'", response.Groups[1].Category)
	}
	// Names sorted within the group
	if response.Groups[0].Types[0].Name != "Car Package" {
		t.Errorf("Expected 'Car Package' first in Motor, got '%s'", response.Groups[0].Types[0].Name)
	}
}

func TestLookupHandlerSubagents(t *testing.T) {
	handler, ts := newTestLookupHandler(t)
	defer ts.Close()

	router := gin.New()
	router.GET("/lookups/subagents", handler.Subagents)

	req := httptest.NewRequest("GET", "/lookups/subagents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "South Branch") {
		t.Error("Expected subagent in response")
	}
}

func TestLookupHandlerClients(t *testing.T) {
	handler, ts := newTestLookupHandler(t)
	defer ts.Close()

	router := gin.New()
	router.GET("/lookups/clients", handler.Clients)

	// Without a query the full cached list comes back
	req := httptest.NewRequest("GET", "/lookups/clients", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string][]map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response["clients"]) != 2 {
		t.Errorf("Expected 2 clients, got %d", len(response["clients"]))
	}

	// A query schedules the debounced search; after it fires the same
	// endpoint serves the narrowed results
	req = httptest.NewRequest("GET", "/lookups/clients?q=vik", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	time.Sleep(100 * time.Millisecond)

	req = httptest.NewRequest("GET", "/lookups/clients?q=vik", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response["clients"]) != 1 {
		t.Errorf("Expected 1 client after search, got %d", len(response["clients"]))
	}
}
