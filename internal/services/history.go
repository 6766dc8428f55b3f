package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"
)

const defaultHistoryLimit = 50
const maxHistoryLimit = 500

// HistoryService reads past transfers from the account-history HTTP
// service. History is served by a separate indexer, not by the RPC
// nodes, and is never cached here.
type HistoryService struct {
	httpClient *http.Client
	baseURL    string
	symbol     string
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(cfg *config.Config) *HistoryService {
	return &HistoryService{
		httpClient: &http.Client{Timeout: cfg.History.Timeout},
		baseURL:    cfg.History.BaseURL,
		symbol:     cfg.Staking.Symbol,
	}
}

// GetTransferHistory returns up to limit past transfers touching the
// account, newest first
func (hs *HistoryService) GetTransferHistory(ctx context.Context, account string, limit int) ([]models.TransferRecord, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := url.Values{}
	query.Set("account", account)
	query.Set("symbol", hs.symbol)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hs.baseURL+"/accountHistory?"+query.Encode(), nil)
	if err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeHistoryAPIError, "failed to build history request", err)
	}

	resp, err := hs.httpClient.Do(req)
	if err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeHistoryAPIError, "history request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewAppError(models.ErrorCodeHistoryAPIError,
			fmt.Sprintf("history API returned status %d", resp.StatusCode))
	}

	var records []models.TransferRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeHistoryAPIError, "failed to decode history response", err)
	}

	return records, nil
}
