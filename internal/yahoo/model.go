package yahoo

import "time"

// chartResponse mirrors the Yahoo Finance chart API JSON. Only the fields the
// price sync needs are mapped.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency     string `json:"currency"`
				Symbol       string `json:"symbol"`
				ExchangeName string `json:"exchangeName"`
				LongName     string `json:"longName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote is one daily closing price parsed out of a chart response.
type Quote struct {
	Date  time.Time
	Close float64
}

// Chart is the parsed price history of one symbol.
type Chart struct {
	Symbol   string
	Currency string
	Exchange string
	Name     string
	Quotes   []Quote
}
