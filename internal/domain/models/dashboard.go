package models

// Chart keys used in Dashboard.Errors and in metrics labels.
const (
	ChartBest    = "best_bar_chart"
	ChartWorst   = "worst_bar_chart"
	ChartRevenue = "revenue_chart"
	ChartEPS     = "eps_chart"
	ChartPrice   = "price_chart"
	ChartRSI     = "rsi_chart"
	TextReturn   = "predicted_return_text"
)

// UIState is everything the page can change: the selected ticker and the two
// SMA button click counters. The SMA series is shown while include > exclude.
type UIState struct {
	Ticker     string `query:"ticker" json:"ticker"`
	SMAInclude int    `query:"sma_include" json:"sma_include" validate:"gte=0"`
	SMAExclude int    `query:"sma_exclude" json:"sma_exclude" validate:"gte=0"`
}

// ShowSMA reports whether the price chart carries the SMA series.
func (s UIState) ShowSMA() bool { return s.SMAInclude > s.SMAExclude }

// Dashboard is one full render of the page for a UIState.
type Dashboard struct {
	Ticker              string            `json:"ticker"`
	PredictedReturnText string            `json:"predicted_return_text"`
	BestBarChart        Figure            `json:"best_bar_chart"`
	WorstBarChart       Figure            `json:"worst_bar_chart"`
	RevenueChart        Figure            `json:"revenue_chart"`
	EPSChart            Figure            `json:"eps_chart"`
	PriceChart          Figure            `json:"price_chart"`
	RSIChart            Figure            `json:"rsi_chart"`
	Errors              map[string]string `json:"errors,omitempty"`
}
