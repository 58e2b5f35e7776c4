package crm

import (
	"time"

	"github.com/google/uuid"

	"github.com/coffee-export/export-manager/internal/shared"
)

// CoffeeOrigin is a producing region a buyer prefers.
type CoffeeOrigin string

const (
	OriginSidama      CoffeeOrigin = "Sidama"
	OriginYirgacheffe CoffeeOrigin = "Yirgacheffe"
	OriginGuji        CoffeeOrigin = "Guji"
	OriginHarrar      CoffeeOrigin = "Harrar"
	OriginLimu        CoffeeOrigin = "Limu"
	OriginOther       CoffeeOrigin = "Other"
)

// Origins lists every supported origin.
var Origins = []CoffeeOrigin{OriginSidama, OriginYirgacheffe, OriginGuji, OriginHarrar, OriginLimu, OriginOther}

// Valid reports whether o is a known origin.
func (o CoffeeOrigin) Valid() bool {
	for _, known := range Origins {
		if o == known {
			return true
		}
	}
	return false
}

// Certification is a sustainability label a buyer requires.
type Certification string

const (
	CertOrganic            Certification = "Organic"
	CertFairTrade          Certification = "Fair Trade"
	CertRainforestAlliance Certification = "Rainforest Alliance"
	CertUTZ                Certification = "UTZ Certified"
)

// Certifications lists every supported label.
var Certifications = []Certification{CertOrganic, CertFairTrade, CertRainforestAlliance, CertUTZ}

// Valid reports whether c is a known certification.
func (c Certification) Valid() bool {
	for _, known := range Certifications {
		if c == known {
			return true
		}
	}
	return false
}

// CustomerStatus tracks where a buyer sits in the sales pipeline.
type CustomerStatus string

const (
	StatusLead    CustomerStatus = "Lead"
	StatusActive  CustomerStatus = "Active"
	StatusRepeat  CustomerStatus = "Repeat"
	StatusDormant CustomerStatus = "Dormant"
)

// Valid reports whether s is a known status.
func (s CustomerStatus) Valid() bool {
	switch s {
	case StatusLead, StatusActive, StatusRepeat, StatusDormant:
		return true
	}
	return false
}

// CountsAsActive reports whether the customer is currently buying.
func (s CustomerStatus) CountsAsActive() bool {
	return s == StatusActive || s == StatusRepeat
}

// InteractionType classifies a logged customer touchpoint.
type InteractionType string

const (
	InteractionEmail   InteractionType = "Email"
	InteractionCall    InteractionType = "Call"
	InteractionMeeting InteractionType = "Meeting"
	InteractionSample  InteractionType = "Sample"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionEmail, InteractionCall, InteractionMeeting, InteractionSample:
		return true
	}
	return false
}

// Interaction is a single dated touchpoint with a customer.
type Interaction struct {
	ID    uuid.UUID       `json:"id"`
	Date  shared.Date     `json:"date"`
	Type  InteractionType `json:"type"`
	Notes string          `json:"notes"`
}

// Customer is a coffee buyer.
type Customer struct {
	ID               uuid.UUID       `json:"id"`
	CompanyName      string          `json:"company_name"`
	ContactPerson    string          `json:"contact_person"`
	Country          string          `json:"country"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	PreferredOrigin  CoffeeOrigin    `json:"preferred_origin"`
	Certifications   []Certification `json:"certifications"`
	Status           CustomerStatus  `json:"status"`
	AssignedSalesRep string          `json:"assigned_sales_rep"`
	Notes            string          `json:"notes"`
	NextFollowUpDate *shared.Date    `json:"next_follow_up_date"`
	Interactions     []Interaction   `json:"interactions"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// FollowUpOverdue reports whether the scheduled follow-up is before today.
func (c Customer) FollowUpOverdue(today shared.Date) bool {
	return c.NextFollowUpDate != nil && c.NextFollowUpDate.Before(today)
}

// CreateCustomerRequest carries the fields for a new customer.
type CreateCustomerRequest struct {
	CompanyName      string          `json:"company_name" validate:"required,max=200"`
	ContactPerson    string          `json:"contact_person" validate:"max=200"`
	Country          string          `json:"country" validate:"max=100"`
	Email            string          `json:"email" validate:"omitempty,email"`
	Phone            string          `json:"phone" validate:"max=50"`
	PreferredOrigin  CoffeeOrigin    `json:"preferred_origin" validate:"required"`
	Certifications   []Certification `json:"certifications"`
	Status           CustomerStatus  `json:"status"`
	AssignedSalesRep string          `json:"assigned_sales_rep" validate:"max=200"`
	Notes            string          `json:"notes"`
	NextFollowUpDate *shared.Date    `json:"next_follow_up_date"`
}

// UpdateCustomerRequest carries a partial update; nil fields are left as is.
type UpdateCustomerRequest struct {
	CompanyName      *string          `json:"company_name" validate:"omitempty,min=1,max=200"`
	ContactPerson    *string          `json:"contact_person" validate:"omitempty,max=200"`
	Country          *string          `json:"country" validate:"omitempty,max=100"`
	Email            *string          `json:"email" validate:"omitempty,email"`
	Phone            *string          `json:"phone" validate:"omitempty,max=50"`
	PreferredOrigin  *CoffeeOrigin    `json:"preferred_origin"`
	Certifications   *[]Certification `json:"certifications"`
	Status           *CustomerStatus  `json:"status"`
	AssignedSalesRep *string          `json:"assigned_sales_rep" validate:"omitempty,max=200"`
	Notes            *string          `json:"notes"`
	NextFollowUpDate *shared.Date     `json:"next_follow_up_date"`
	ClearFollowUp    bool             `json:"clear_follow_up"`
}

// LogInteractionRequest records a touchpoint. Date defaults to today.
type LogInteractionRequest struct {
	Date  shared.Date     `json:"date"`
	Type  InteractionType `json:"type" validate:"required"`
	Notes string          `json:"notes" validate:"max=4000"`
}

// ListCustomersRequest filters the customer list. Empty fields match all.
type ListCustomersRequest struct {
	Status CustomerStatus
	Origin CoffeeOrigin
}
