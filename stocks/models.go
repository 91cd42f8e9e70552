package stocks

import (
	"strconv"
	"time"

	"github.com/dashcast/dashcast/table"
)

// Price is one trading day of OHLCV data
type Price struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}

var Columns = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// ToTable lays the prices out with one row per trading day
func ToTable(prices []Price) *table.Table {
	rows := make([][]string, len(prices))
	for i, p := range prices {
		rows[i] = []string{
			p.Date.Format(time.DateOnly),
			formatPrice(p.Open),
			formatPrice(p.High),
			formatPrice(p.Low),
			formatPrice(p.Close),
			formatPrice(p.AdjClose),
			strconv.FormatInt(p.Volume, 10),
		}
	}
	return table.New(Columns, rows, table.SourceAPI)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// chartResponse is the body of the v8 chart endpoint
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []float64 `json:"open"`
			High   []float64 `json:"high"`
			Low    []float64 `json:"low"`
			Close  []float64 `json:"close"`
			Volume []int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}
