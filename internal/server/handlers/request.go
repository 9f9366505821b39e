package handlers

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/cimara/stockledger/internal/service/withdrawal"
)

// LineItemRequest is one equipment line of a withdrawal payload.
type LineItemRequest struct {
	EquipmentID       string `json:"equipmentId"`
	EquipmentName     string `json:"equipmentName"`
	QuantityWithdrawn int    `json:"quantityWithdrawn"`
	Unit              string `json:"unit"`
}

// Validate checks one line item.
func (r LineItemRequest) Validate() error {
	if r.EquipmentID == "" && r.EquipmentName == "" {
		return fmt.Errorf("equipmentId or equipmentName is required")
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.QuantityWithdrawn, validation.Required, validation.Min(1)),
	)
}

// WithdrawalRequest is the JSON body for withdrawals and transfers.
type WithdrawalRequest struct {
	WithdrawalDate  string            `json:"withdrawalDate"`
	RequestedBy     string            `json:"requestedBy"`
	ReceiverName    string            `json:"receiverName"`
	SenderName      string            `json:"senderName"`
	Notes           string            `json:"notes"`
	DestinationSite string            `json:"destinationSite"`
	Items           []LineItemRequest `json:"items"`
}

// Validate checks the withdrawal payload shape. Stock-level rules are
// the processor's concern.
func (r WithdrawalRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 0)),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	); err != nil {
		return err
	}
	for i, item := range r.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	if r.WithdrawalDate != "" {
		if _, err := parseDate(r.WithdrawalDate); err != nil {
			return fmt.Errorf("withdrawalDate: %w", err)
		}
	}
	return nil
}

// ToServiceRequest converts the payload into the processor's input.
// Validate must have passed first.
func (r WithdrawalRequest) ToServiceRequest() withdrawal.Request {
	var date time.Time
	if r.WithdrawalDate != "" {
		date, _ = parseDate(r.WithdrawalDate)
	}

	items := make([]withdrawal.LineItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, withdrawal.LineItem{
			EquipmentID:   item.EquipmentID,
			EquipmentName: item.EquipmentName,
			Quantity:      item.QuantityWithdrawn,
			Unit:          item.Unit,
		})
	}

	return withdrawal.Request{
		WithdrawalDate:   date,
		RequestedBy:      r.RequestedBy,
		ReceiverName:     r.ReceiverName,
		SenderName:       r.SenderName,
		Notes:            r.Notes,
		DestinationStore: r.DestinationSite,
		Items:            items,
	}
}

// AddEquipmentRequest is the JSON body for a stock intake.
type AddEquipmentRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	SerialNumber string  `json:"serialNumber"`
	Quantity     int     `json:"quantity"`
	Unit         string  `json:"unit"`
	Location     string  `json:"location"`
	Condition    string  `json:"condition"`
	Price        float64 `json:"price"`
}

// Validate checks the intake payload.
func (r AddEquipmentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&r.Unit, validation.Required),
	)
}

// UpdateEquipmentRequest carries administrative field corrections.
// Absent fields stay untouched.
type UpdateEquipmentRequest struct {
	Name         *string  `json:"name"`
	Category     *string  `json:"category"`
	SerialNumber *string  `json:"serialNumber"`
	Quantity     *int     `json:"quantity"`
	Unit         *string  `json:"unit"`
	Location     *string  `json:"location"`
	Condition    *string  `json:"condition"`
	Price        *float64 `json:"price"`
}

// Validate rejects corrections that would break the ledger invariant.
func (r UpdateEquipmentRequest) Validate() error {
	if r.Quantity != nil && *r.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	if r.Name != nil && *r.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	return nil
}

const dateLayout = "2006-01-02"

// parseDate accepts RFC3339 timestamps and plain dates. All values are
// normalized to UTC timestamps before they reach storage.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC3339", value)
	}
	return t.UTC(), nil
}

// endOfDay pushes a plain-date bound to the last instant of that day so
// inclusive ranges behave as users expect.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
