package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/djonanko/payin-service/internal/domain"
	"github.com/djonanko/payin-service/internal/logger"
)

const requestTimeout = 15 * time.Second

// Client talks to the administration service that owns users, balances and
// the audit ledgers. The service credential is sent on every request; a 404
// maps to domain.ErrRecordNotFound, any other non-2xx to
// domain.ErrLedgerOperation.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) GetUser(ctx context.Context, phoneNumber string) (domain.Account, error) {
	var account domain.Account
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(phoneNumber), nil, &account)
	return account, err
}

func (c *Client) GetUserByID(ctx context.Context, id string) (domain.Account, error) {
	var account domain.Account
	err := c.do(ctx, http.MethodGet, "/users/id/"+url.PathEscape(id), nil, &account)
	return account, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, patch domain.AccountPatch) (domain.UpdateResult, error) {
	var result domain.UpdateResult
	err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), patch, &result)
	return result, err
}

func (c *Client) CreateTransaction(ctx context.Context, transaction domain.NewTransaction) (domain.Transaction, error) {
	var created domain.Transaction
	err := c.do(ctx, http.MethodPost, "/transactions", transaction, &created)
	return created, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, patch domain.TransactionPatch) (domain.UpdateResult, error) {
	var result domain.UpdateResult
	err := c.do(ctx, http.MethodPatch, "/transactions/"+url.PathEscape(id), patch, &result)
	return result, err
}

func (c *Client) GetTransactionByReference(ctx context.Context, reference string) (domain.Transaction, error) {
	var transaction domain.Transaction
	err := c.do(ctx, http.MethodGet, "/transactions/reference/"+url.PathEscape(reference), nil, &transaction)
	return transaction, err
}

func (c *Client) CreateHistory(ctx context.Context, entry domain.NewHistoryEntry) (domain.HistoryEntry, error) {
	var created domain.HistoryEntry
	err := c.do(ctx, http.MethodPost, "/historiques", entry, &created)
	return created, err
}

func (c *Client) UpdateHistory(ctx context.Context, id string, patch domain.HistoryPatch) (domain.UpdateResult, error) {
	var result domain.UpdateResult
	err := c.do(ctx, http.MethodPatch, "/historiques/"+url.PathEscape(id), patch, &result)
	return result, err
}

func (c *Client) GetHistoryByReference(ctx context.Context, reference string) (domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	err := c.do(ctx, http.MethodGet, "/historiques/reference/"+url.PathEscape(reference), nil, &entry)
	return entry, err
}

func (c *Client) CreateReservation(ctx context.Context, reservation domain.NewReservation) (domain.Reservation, error) {
	var created domain.Reservation
	err := c.do(ctx, http.MethodPost, "/comptes-reservation", reservation, &created)
	return created, err
}

func (c *Client) UpdateReservation(ctx context.Context, id string, patch domain.ReservationPatch) (domain.UpdateResult, error) {
	var result domain.UpdateResult
	err := c.do(ctx, http.MethodPatch, "/comptes-reservation/"+url.PathEscape(id), patch, &result)
	return result, err
}

func (c *Client) CreateCollectEntry(ctx context.Context, entry domain.CollectEntry) error {
	return c.do(ctx, http.MethodPost, "/comptes-collecte", entry, nil)
}

func (c *Client) GetPremiumUsers(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := c.do(ctx, http.MethodGet, "/users/premium", nil, &accounts)
	return accounts, err
}

func (c *Client) ResetPremiumStatus(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := c.do(ctx, http.MethodPost, "/users/premium/reset", nil, &accounts)
	return accounts, err
}

func (c *Client) GetReferralByUserID(ctx context.Context, userID string) (domain.Referral, error) {
	var referral domain.Referral
	err := c.do(ctx, http.MethodGet, "/referrals/user/"+url.PathEscape(userID), nil, &referral)
	return referral, err
}

func (c *Client) UpdateReferral(ctx context.Context, id string, patch domain.ReferralPatch) (domain.UpdateResult, error) {
	var result domain.UpdateResult
	err := c.do(ctx, http.MethodPatch, "/referrals/"+url.PathEscape(id), patch, &result)
	return result, err
}

func (c *Client) SendNotification(ctx context.Context, notification domain.Notification) error {
	return c.do(ctx, http.MethodPost, "/notifications", notification, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error("ledger client request failed", err, logger.Fields{
			"method": method,
			"path":   path,
		})
		return fmt.Errorf("%w: %s %s: %v", domain.ErrLedgerOperation, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrRecordNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logger.Error("ledger client non-success response", nil, logger.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"body":   string(respBody),
		})
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrLedgerOperation, method, path, resp.StatusCode)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
