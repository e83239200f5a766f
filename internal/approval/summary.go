package approval

import (
	"encoding/json"
	"fmt"
	"strings"
)

// orderDetails mirrors the subset of the checkout payload worth surfacing
// to the administrator. The payload itself is opaque to the state machine;
// this is display only and every field is optional.
type orderDetails struct {
	Customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer"`
	Trip struct {
		From          string `json:"from"`
		To            string `json:"to"`
		Date          string `json:"date"`
		DepartureTime string `json:"departureTime"`
	} `json:"trip"`
	Seats         []string    `json:"seats"`
	TotalPrice    json.Number `json:"totalPrice"`
	PaymentMethod string      `json:"paymentMethod"`
}

// formatOrderSummary renders a best-effort HTML block describing the
// order. Unparseable or empty payloads yield an empty string, never an
// error; the booking id line is appended by the caller either way.
func formatOrderSummary(orderData []byte) string {
	if len(orderData) == 0 {
		return ""
	}

	var order orderDetails
	if err := json.Unmarshal(orderData, &order); err != nil {
		return ""
	}

	var b strings.Builder
	if order.Trip.From != "" && order.Trip.To != "" {
		fmt.Fprintf(&b, "\U0001F68C Route: <b>%s</b> ➡️ <b>%s</b>\n", order.Trip.From, order.Trip.To)
		if order.Trip.Date != "" {
			fmt.Fprintf(&b, "\U0001F4C5 Date: %s", order.Trip.Date)
			if order.Trip.DepartureTime != "" {
				fmt.Fprintf(&b, " at %s", order.Trip.DepartureTime)
			}
			b.WriteString("\n")
		}
	}
	if len(order.Seats) > 0 {
		fmt.Fprintf(&b, "\U0001FA91 Seats: <b>%s</b>\n", strings.Join(order.Seats, ", "))
	}
	if order.Customer.Name != "" {
		fmt.Fprintf(&b, "\U0001F464 Customer: <b>%s</b>\n", order.Customer.Name)
	}
	if order.TotalPrice != "" {
		fmt.Fprintf(&b, "\U0001F4B0 Total: <b>%s</b>\n", order.TotalPrice)
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString("\n")
	return b.String()
}
