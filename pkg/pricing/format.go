package pricing

import (
	"fmt"
	"math"
	"strconv"
)

// Display is a Result rendered for presentation; currency values carry two decimals
type Display struct {
	WeightG         string `json:"weight_g"`
	PrintTime       string `json:"print_time"`
	UnitPrice       string `json:"unit_price"`
	Quantity        int    `json:"quantity"`
	LineTotal       string `json:"line_total"`
	DiscountPercent string `json:"discount_percent"`
	DiscountAmount  string `json:"discount_amount"`
	RushMultiplier  string `json:"rush_multiplier"`
	DeliveryFee     string `json:"delivery_fee"`
	Subtotal        string `json:"subtotal"`
	VAT             string `json:"vat"`
	GrandTotal      string `json:"grand_total"`
	Source          Source `json:"estimate_source"`
	EstimatedDate   string `json:"estimated_date"`
}

// Display formats the result for presentation
func (r Result) Display() Display {
	return Display{
		WeightG:         strconv.FormatFloat(r.WeightG, 'f', 1, 64),
		PrintTime:       FormatHours(r.PrintTimeHours),
		UnitPrice:       Money(r.UnitPrice),
		Quantity:        r.Quantity,
		LineTotal:       Money(r.LineTotal),
		DiscountPercent: strconv.FormatFloat(r.DiscountPercent, 'f', 0, 64),
		DiscountAmount:  Money(r.DiscountAmount),
		RushMultiplier:  strconv.FormatFloat(r.RushMultiplier, 'f', 2, 64),
		DeliveryFee:     Money(r.DeliveryFee),
		Subtotal:        Money(r.Subtotal),
		VAT:             Money(r.VAT),
		GrandTotal:      Money(r.GrandTotal),
		Source:          r.Source,
		EstimatedDate:   r.EstimatedDate.Format("2006-01-02"),
	}
}

// Money formats a currency amount with two decimals
func Money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatHours renders a duration in hours as "3h 25m"
func FormatHours(hours float64) string {
	if hours <= 0 || math.IsNaN(hours) {
		return "0h 0m"
	}
	minutes := int(math.Round(hours * 60))
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
