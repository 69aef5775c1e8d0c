package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/djonanko/payin-service/internal/domain"
)

func TestClientGetUserSendsCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "service-key" {
			t.Fatalf("expected api-key header, got %q", r.Header.Get("api-key"))
		}
		if r.URL.Path != "/users/0707000001" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(domain.Account{
			ID:          "u-1",
			PhoneNumber: "0707000001",
			Balance:     "1000",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key")
	account, err := client.GetUser(context.Background(), "0707000001")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if account.ID != "u-1" || account.Balance != "1000" {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestClientMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key")
	_, err := client.GetUser(context.Background(), "0000000000")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestClientWrapsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key")
	_, err := client.UpdateUser(context.Background(), "u-1", domain.AccountPatch{})
	if !errors.Is(err, domain.ErrLedgerOperation) {
		t.Fatalf("expected ErrLedgerOperation, got %v", err)
	}
}

func TestClientUpdateUserPatchesBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/users/u-1" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			t.Fatalf("decode patch: %v", err)
		}
		if patch["solde"] != "900" {
			t.Fatalf("expected solde 900, got %v", patch["solde"])
		}
		if _, present := patch["premium"]; present {
			t.Fatal("expected unset fields omitted from patch")
		}
		_ = json.NewEncoder(w).Encode(domain.UpdateResult{Affected: 1})
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key")
	balance := "900"
	result, err := client.UpdateUser(context.Background(), "u-1", domain.AccountPatch{Balance: &balance})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Affected != 1 {
		t.Fatalf("expected one affected row, got %d", result.Affected)
	}
}

func TestClientCreateCollectEntryNoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comptes-collecte" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key")
	err := client.CreateCollectEntry(context.Background(), domain.CollectEntry{
		Amount:      "10",
		CollectType: domain.CollectTypeFees,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
