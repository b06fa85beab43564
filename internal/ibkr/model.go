package ibkr

import (
	"encoding/xml"
	"time"
)

// RequestResponse is the acknowledgement of a flex report request. The report
// itself becomes available later at URL under ReferenceCode.
type RequestResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Timestamp     string   `xml:"timestamp,attr"`
	Status        string   `xml:"Status"`
	ReferenceCode int      `xml:"ReferenceCode"`
	URL           string   `xml:"Url"`
	ErrorCode     *int     `xml:"ErrorCode"`
	ErrorMessage  *string  `xml:"ErrorMessage"`
}

// Trade is one executed order line in a flex statement.
type Trade struct {
	Currency      string  `xml:"currency,attr"`
	Symbol        string  `xml:"symbol,attr"`
	Description   string  `xml:"description,attr"`
	Isin          string  `xml:"isin,attr"`
	Quantity      float64 `xml:"quantity,attr"`
	TradePrice    float64 `xml:"tradePrice,attr"`
	IbCommission  float64 `xml:"ibCommission,attr"`
	NetCash       float64 `xml:"netCash,attr"`
	TransactionID int64   `xml:"transactionID,attr"`
	TradeDate     string  `xml:"tradeDate,attr"`
	BuySell       string  `xml:"buySell,attr"`
}

// CashTransaction is one cash movement line, typically a dividend or a fee.
type CashTransaction struct {
	Currency      string  `xml:"currency,attr"`
	Symbol        string  `xml:"symbol,attr"`
	Description   string  `xml:"description,attr"`
	DateTime      string  `xml:"dateTime,attr"`
	Amount        float64 `xml:"amount,attr"`
	Type          string  `xml:"type,attr"`
	TransactionID int64   `xml:"transactionID,attr"`
	Isin          string  `xml:"isin,attr"`
	ReportDate    string  `xml:"reportDate,attr"`
	ExDate        string  `xml:"exDate,attr"`
}

// QueryResponse is a downloaded flex statement.
type QueryResponse struct {
	XMLName        xml.Name `xml:"FlexQueryResponse"`
	QueryName      string   `xml:"queryName,attr"`
	Type           string   `xml:"type,attr"`
	FlexStatements struct {
		Count         string `xml:"count,attr"`
		FlexStatement struct {
			AccountID     string `xml:"accountId,attr"`
			FromDate      string `xml:"fromDate,attr"`
			ToDate        string `xml:"toDate,attr"`
			WhenGenerated string `xml:"whenGenerated,attr"`
			Trades        struct {
				Trade []Trade `xml:"Trade"`
			} `xml:"Trades"`
			CashTransactions struct {
				CashTransaction []CashTransaction `xml:"CashTransaction"`
			} `xml:"CashTransactions"`
		} `xml:"FlexStatement"`
	} `xml:"FlexStatements"`
	RetrievedAt time.Time `xml:"-"`
}
