package domain

import "time"

// Transaction is one line of the retail transactions spreadsheet after
// cleaning. InvoiceNo and StockCode are text even when they look numeric.
type Transaction struct {
	InvoiceNo        string    `json:"invoice_no"`
	StockCode        string    `json:"stock_code"`
	Description      string    `json:"description"`
	Quantity         int       `json:"quantity"`
	UnitPrice        float64   `json:"unit_price"`
	InvoiceTimestamp time.Time `json:"invoice_timestamp"`
	CustomerID       int       `json:"customer_id"`
	Country          string    `json:"country"`
	TotalPrice       float64   `json:"total_price"`
}
