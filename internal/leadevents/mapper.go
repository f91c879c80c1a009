// Package leadevents maps raw database change payloads into typed domain
// records. Mapping is pure: no I/O, no side effects.
package leadevents

import (
	"encoding/json"
	"fmt"
	"strconv"

	"elecrm_backend/platform/apperr"
	"elecrm_backend/platform/phone"
)

// Operations reported by the database triggers.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// ChangePayload is the envelope emitted by the table triggers on NOTIFY.
type ChangePayload struct {
	Operation string          `json:"operation"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record"`
}

// ParseChangePayload decodes the raw NOTIFY payload envelope.
func ParseChangePayload(raw string) (ChangePayload, error) {
	var payload ChangePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ChangePayload{}, apperr.Wrap(apperr.KindBadRequest, "malformed change payload", err)
	}
	if payload.Operation == "" {
		return ChangePayload{}, apperr.BadRequest("change payload missing operation")
	}
	return payload, nil
}

// CombinedLead is the canonical lead record as read from change payloads.
// The originating table owns the lifecycle; this core only derives it.
type CombinedLead struct {
	ID            int64   `json:"id"`
	GlobalID      string  `json:"global_id"`
	LeadID        string  `json:"lead_id"`
	FirstName     string  `json:"first_name"`
	MiddleName    string  `json:"middle_name"`
	LastName      string  `json:"last_name"`
	Email         string  `json:"email"`
	PhoneNumber   string  `json:"phone_number"`
	Address       string  `json:"address"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	ZipCode       string  `json:"zip_code"`
	PropertyValue float64 `json:"property_value"`
	LoanAmount    float64 `json:"loan_amount"`
	LoanPurpose   string  `json:"loan_purpose"`
	CreditRating  string  `json:"credit_rating"`
	Veteran       bool    `json:"veteran"`
	Status        string  `json:"status"`
	Exported      bool    `json:"exported"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// QueueUpdate is a lightweight record describing a queue-table insertion.
// It exists only for broadcast and is discarded after dispatch.
type QueueUpdate struct {
	LeadID      string `json:"lead_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	State       string `json:"state"`
	PhoneNumber string `json:"phone_number"`
}

// MapCombinedLead builds a CombinedLead from a raw row snapshot.
// Missing optional text fields default to "", booleans to false, monetary
// numerics to 0. A missing row id is the only fatal condition.
func MapCombinedLead(record json.RawMessage) (CombinedLead, error) {
	row, err := decodeRow(record)
	if err != nil {
		return CombinedLead{}, err
	}

	id, ok := rowInt(row, "id")
	if !ok {
		return CombinedLead{}, apperr.BadRequest("lead change payload missing row id")
	}

	return CombinedLead{
		ID:            id,
		GlobalID:      rowString(row, "global_id"),
		LeadID:        rowString(row, "lead_id"),
		FirstName:     rowString(row, "first_name"),
		MiddleName:    rowString(row, "middle_name"),
		LastName:      rowString(row, "last_name"),
		Email:         rowString(row, "email"),
		PhoneNumber:   phone.NormalizeE164(rowString(row, "phone_number")),
		Address:       rowString(row, "address"),
		City:          rowString(row, "city"),
		State:         rowString(row, "state"),
		ZipCode:       rowString(row, "zip_code"),
		PropertyValue: rowFloat(row, "property_value"),
		LoanAmount:    rowFloat(row, "loan_amount"),
		LoanPurpose:   rowString(row, "loan_purpose"),
		CreditRating:  rowString(row, "credit_rating"),
		Veteran:       rowBool(row, "veteran_status"),
		Status:        rowString(row, "status"),
		Exported:      rowBool(row, "exported"),
		CreatedAt:     rowString(row, "created_at"),
		UpdatedAt:     rowString(row, "updated_at"),
	}, nil
}

// MapQueueUpdate builds a QueueUpdate from a raw queue row snapshot.
func MapQueueUpdate(record json.RawMessage) (QueueUpdate, error) {
	row, err := decodeRow(record)
	if err != nil {
		return QueueUpdate{}, err
	}

	leadID := rowString(row, "lead_id")
	if leadID == "" {
		return QueueUpdate{}, apperr.BadRequest("queue change payload missing lead id")
	}

	return QueueUpdate{
		LeadID:      leadID,
		FirstName:   rowString(row, "first_name"),
		LastName:    rowString(row, "last_name"),
		State:       rowString(row, "state"),
		PhoneNumber: phone.NormalizeE164(rowString(row, "phone_number")),
	}, nil
}

func decodeRow(record json.RawMessage) (map[string]interface{}, error) {
	if len(record) == 0 {
		return nil, apperr.BadRequest("change payload missing record")
	}
	var row map[string]interface{}
	if err := json.Unmarshal(record, &row); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "malformed record snapshot", err)
	}
	return row, nil
}

func rowString(row map[string]interface{}, key string) string {
	value, ok := row[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		// Numeric identifiers must round-trip exactly; %v would render
		// large values in scientific notation.
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return fmt.Sprintf("%t", typed)
	default:
		return ""
	}
}

func rowBool(row map[string]interface{}, key string) bool {
	value, ok := row[key]
	if !ok || value == nil {
		return false
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return typed == "true" || typed == "t" || typed == "1"
	default:
		return false
	}
}

func rowFloat(row map[string]interface{}, key string) float64 {
	value, ok := row[key]
	if !ok || value == nil {
		return 0
	}
	if typed, ok := value.(float64); ok {
		return typed
	}
	return 0
}

func rowInt(row map[string]interface{}, key string) (int64, bool) {
	value, ok := row[key]
	if !ok || value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return int64(typed), true
	case string:
		var parsed int64
		if _, err := fmt.Sscanf(typed, "%d", &parsed); err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
