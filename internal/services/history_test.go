package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyTestConfig(baseURL string) *config.Config {
	return &config.Config{
		History: config.HistoryConfig{
			BaseURL: baseURL,
			Timeout: 2 * time.Second,
		},
		Staking: config.StakingConfig{Symbol: "SPORTS"},
	}
}

func TestHistoryService_GetTransferHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accountHistory", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("account"))
		assert.Equal(t, "SPORTS", r.URL.Query().Get("symbol"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode([]models.TransferRecord{
			{ID: "tx2", From: "bob", To: "alice", Quantity: "5", Symbol: "SPORTS", Timestamp: 1700000100},
			{ID: "tx1", From: "alice", To: "carol", Quantity: "2", Symbol: "SPORTS", Memo: "tip", Timestamp: 1700000000},
		})
	}))
	defer server.Close()

	hs := NewHistoryService(historyTestConfig(server.URL))

	records, err := hs.GetTransferHistory(context.Background(), "alice", 25)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "tx2", records[0].ID)
	assert.Equal(t, "tip", records[1].Memo)
}

func TestHistoryService_DefaultAndCappedLimit(t *testing.T) {
	var gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode([]models.TransferRecord{})
	}))
	defer server.Close()

	hs := NewHistoryService(historyTestConfig(server.URL))

	_, err := hs.GetTransferHistory(context.Background(), "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, "50", gotLimit)

	_, err = hs.GetTransferHistory(context.Background(), "alice", 99999)
	require.NoError(t, err)
	assert.Equal(t, "500", gotLimit)
}

func TestHistoryService_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	hs := NewHistoryService(historyTestConfig(server.URL))

	_, err := hs.GetTransferHistory(context.Background(), "alice", 10)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeHistoryAPIError, appErr.Code)
}

func TestHistoryService_RejectsBadAccount(t *testing.T) {
	hs := NewHistoryService(historyTestConfig("http://127.0.0.1:1"))

	_, err := hs.GetTransferHistory(context.Background(), "x", 10)
	require.Error(t, err)
}
