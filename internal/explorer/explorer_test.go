package explorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/accounts/0x1111", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		_ = json.NewEncoder(w).Encode(Account{Address: "0x1111", Balance: "42000000", TxCount: 7})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	acct, err := c.Account(context.Background(), "0x1111")
	require.NoError(t, err)
	assert.Equal(t, 7, acct.TxCount)
}

func TestTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]Transaction{{Hash: "0xabc", Block: 123}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	txs, err := c.Transactions(context.Background(), "0x1111", 5)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0xabc", txs[0].Hash)
}

func TestStatus_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Status(context.Background())
	assert.Error(t, err)
}
