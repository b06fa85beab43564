package testutil

import (
	"context"

	"github.com/jmolenaar/fundtracker/internal/ibkr"
)

// MockFlexClient implements ibkr.Client with a canned statement so the flex
// import path can be tested without the IBKR web service.
type MockFlexClient struct {
	Statement ibkr.QueryResponse
	Err       error
	Calls     int
}

// FetchStatement returns the configured statement or error.
func (m *MockFlexClient) FetchStatement(_ context.Context, _, _ string) (ibkr.QueryResponse, error) {
	m.Calls++
	if m.Err != nil {
		return ibkr.QueryResponse{}, m.Err
	}
	return m.Statement, nil
}

// MakeFlexStatement builds a statement containing the given trades and cash
// transactions.
func MakeFlexStatement(trades []ibkr.Trade, cash []ibkr.CashTransaction) ibkr.QueryResponse {
	var resp ibkr.QueryResponse
	resp.FlexStatements.Count = "1"
	resp.FlexStatements.FlexStatement.Trades.Trade = trades
	resp.FlexStatements.FlexStatement.CashTransactions.CashTransaction = cash
	return resp
}
