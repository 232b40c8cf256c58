package models

import "time"

// CustomerMonthlyData is one customer's row in a monthly summary.
type CustomerMonthlyData struct {
	CustomerID    string  `bson:"customer_id" json:"customerId"`
	CustomerName  string  `bson:"customer_name" json:"customerName"`
	TotalQuantity float64 `bson:"total_quantity" json:"totalQuantity"`
	TotalAmount   float64 `bson:"total_amount" json:"totalAmount"`
	DeliveryCount int     `bson:"delivery_count" json:"deliveryCount"`
}

// MonthlySummary aggregates the entries of one calendar month (YYYY-MM).
type MonthlySummary struct {
	Month             string                `bson:"month" json:"month"`
	TotalQuantity     float64               `bson:"total_quantity" json:"totalQuantity"`
	TotalRevenue      float64               `bson:"total_revenue" json:"totalRevenue"`
	DeliveryCount     int                   `bson:"delivery_count" json:"deliveryCount"`
	CustomerBreakdown []CustomerMonthlyData `bson:"customer_breakdown" json:"customerBreakdown"`
}

// CustomerLedger holds the lifetime totals of one customer.
type CustomerLedger struct {
	CustomerID           string  `json:"customerId"`
	TotalDeliveredLiters float64 `json:"totalDeliveredLiters"`
	TotalBilled          float64 `json:"totalBilled"`
	TotalPaid            float64 `json:"totalPaid"`
	Balance              float64 `json:"balance"`
}

// MonthlyReport is a closed month persisted by the monthly close job.
type MonthlyReport struct {
	UserID       string         `bson:"user_id" json:"userId"`
	Month        string         `bson:"month" json:"month"`
	Summary      MonthlySummary `bson:"summary" json:"summary"`
	TotalPaid    float64        `bson:"total_paid" json:"totalPaid"`
	TotalBalance float64        `bson:"total_balance" json:"totalBalance"`
	CreatedAt    time.Time      `bson:"created_at" json:"createdAt"`
}
