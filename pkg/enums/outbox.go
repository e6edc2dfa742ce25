package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateMedicine OutboxAggregateType = "medicine"
	AggregateTransfer OutboxAggregateType = "transfer"
	AggregatePurchase OutboxAggregateType = "purchase"
	AggregatePatient  OutboxAggregateType = "patient"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateMedicine,
	AggregateTransfer,
	AggregatePurchase,
	AggregatePatient,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventMedicineTransferred OutboxEventType = "medicine_transferred"
	EventPurchaseCommitted   OutboxEventType = "purchase_committed"
	EventPurchaseRecorded    OutboxEventType = "purchase_recorded"
	EventPatientRegistered   OutboxEventType = "patient_registered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventMedicineTransferred,
	EventPurchaseCommitted,
	EventPurchaseRecorded,
	EventPatientRegistered,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
