package spitfire

import (
	"strconv"

	"elecrm_backend/internal/leadevents"
)

// LeadSubmission is the Spitfire lead creation schema. Every field is a
// string; numeric source fields without a value map to "" rather than "0"
// so the platform can tell "unknown" from a real zero.
type LeadSubmission struct {
	AccountID     string `json:"account_id"`
	UserID        string `json:"user_id"`
	ExternalID    string `json:"external_id"`
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phone_number"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zip_code"`
	PropertyValue string `json:"property_value"`
	LoanAmount    string `json:"loan_amount"`
	LoanPurpose   string `json:"loan_purpose"`
	CreditRating  string `json:"credit_rating"`
	Veteran       string `json:"veteran"`
}

// MapLead builds the Spitfire submission from a combined lead and the
// authenticated session's account/user identifiers.
func MapLead(lead leadevents.CombinedLead, session Session) LeadSubmission {
	return LeadSubmission{
		AccountID:     session.AccountID,
		UserID:        session.UserID,
		ExternalID:    lead.GlobalID,
		FirstName:     lead.FirstName,
		MiddleName:    lead.MiddleName,
		LastName:      lead.LastName,
		Email:         lead.Email,
		PhoneNumber:   lead.PhoneNumber,
		Address:       lead.Address,
		City:          lead.City,
		State:         lead.State,
		ZipCode:       lead.ZipCode,
		PropertyValue: formatAmount(lead.PropertyValue),
		LoanAmount:    formatAmount(lead.LoanAmount),
		LoanPurpose:   lead.LoanPurpose,
		CreditRating:  lead.CreditRating,
		Veteran:       formatBool(lead.Veteran),
	}
}

// formatAmount renders a monetary value, with zero meaning "unknown".
func formatAmount(value float64) string {
	if value == 0 {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatBool(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
