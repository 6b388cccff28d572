package models

// Requests for the journal HTTP endpoints. Defined in domain for consistency
// and reuse. Pairing method and date strings are normalized by the usecase
// layer so their errors carry precise input-error codes.

type AnalyticsRangeRequest struct {
	PairingMethod string `query:"pairing_method" json:"pairing_method"`
	StartDate     string `query:"start_date" json:"start_date"`
	EndDate       string `query:"end_date" json:"end_date"`
}

type RecentTradesRequest struct {
	Limit         int    `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=100"`
	PairingMethod string `query:"pairing_method" json:"pairing_method"`
	StartDate     string `query:"start_date" json:"start_date"`
	EndDate       string `query:"end_date" json:"end_date"`
}

type DistributionRequest struct {
	PairingMethod        string  `query:"pairing_method" json:"pairing_method"`
	StartDate            string  `query:"start_date" json:"start_date"`
	EndDate              string  `query:"end_date" json:"end_date"`
	ConcentrationPercent float64 `query:"concentration_percent" json:"concentration_percent" default:"10"`
}

type PairedTradesByStrategyRequest struct {
	StrategyID    int64  `query:"strategy_id" json:"strategy_id" validate:"gte=0"`
	PairingMethod string `query:"pairing_method" json:"pairing_method"`
	StartDate     string `query:"start_date" json:"start_date"`
	EndDate       string `query:"end_date" json:"end_date"`
}

type StrategyPerformanceRequest struct {
	StartDate string `query:"start_date" json:"start_date"`
	EndDate   string `query:"end_date" json:"end_date"`
}

type OverviewRequest struct {
	PairingMethod string `query:"pairing_method" json:"pairing_method"`
	StartDate     string `query:"start_date" json:"start_date"`
	EndDate       string `query:"end_date" json:"end_date"`
	Limit         int    `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=50"`
}

type TopSymbolsRequest struct {
	Limit         int    `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=50"`
	PairingMethod string `query:"pairing_method" json:"pairing_method"`
	StartDate     string `query:"start_date" json:"start_date"`
	EndDate       string `query:"end_date" json:"end_date"`
}

type ListTradesRequest struct {
	StartDate string `query:"start_date" json:"start_date"`
	EndDate   string `query:"end_date" json:"end_date"`
}

type ImportCsvRequest struct {
	CsvData string `json:"csv_data" validate:"required"`
}

type TradeWriteRequest struct {
	Symbol     string  `json:"symbol" validate:"required"`
	Side       string  `json:"side" validate:"required"`
	Quantity   float64 `json:"quantity" validate:"gt=0"`
	Price      float64 `json:"price" validate:"gte=0"`
	Timestamp  string  `json:"timestamp" validate:"required"`
	OrderType  string  `json:"order_type" default:"MARKET"`
	Status     string  `json:"status" default:"FILLED"`
	Fees       float64 `json:"fees" validate:"gte=0"`
	Notes      string  `json:"notes"`
	StrategyID *int64  `json:"strategy_id"`
}

type AssignStrategyRequest struct {
	StrategyID *int64 `json:"strategy_id"`
}

type StrategyWriteRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Color       string `json:"color" validate:"omitempty,max=32"`
}
