package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrValidation wraps every rejected create or update input
var ErrValidation = errors.New("validation failed")

var validate = validator.New()

type checker interface {
	check() error
}

// Validate runs the struct tags of a request and any cross-field rules it declares
func Validate(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, "; "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if c, ok := req.(checker); ok {
		if err := c.check(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}

// Properties

// CreatePropertyRequest holds the creatable fields of a property
type CreatePropertyRequest struct {
	Name        string       `json:"name" validate:"required,max=255"`
	Address     string       `json:"address" validate:"max=500"`
	City        string       `json:"city" validate:"max=120"`
	Type        PropertyType `json:"type" validate:"omitempty,oneof=residential commercial mixed"`
	Description string       `json:"description"`
	ManagerID   string       `json:"manager_id"`
}

// Build returns the property to store
func (r CreatePropertyRequest) Build() *Property {
	p := &Property{
		Name:        r.Name,
		Address:     r.Address,
		City:        r.City,
		Type:        r.Type,
		Description: r.Description,
		ManagerID:   r.ManagerID,
	}
	if p.Type == "" {
		p.Type = PropertyResidential
	}
	return p
}

// UpdatePropertyRequest holds the updatable fields of a property
type UpdatePropertyRequest struct {
	Name        *string       `json:"name" validate:"omitempty,min=1,max=255"`
	Address     *string       `json:"address" validate:"omitempty,max=500"`
	City        *string       `json:"city" validate:"omitempty,max=120"`
	Type        *PropertyType `json:"type" validate:"omitempty,oneof=residential commercial mixed"`
	Description *string       `json:"description"`
	ManagerID   *string       `json:"manager_id"`
}

// Changes returns the columns the request sets
func (r UpdatePropertyRequest) Changes() Changes {
	c := Changes{}
	setString(c, "name", r.Name)
	setString(c, "address", r.Address)
	setString(c, "city", r.City)
	setString(c, "description", r.Description)
	setString(c, "manager_id", r.ManagerID)
	if r.Type != nil {
		c["type"] = *r.Type
	}
	return c
}

// Units

// CreateUnitRequest holds the creatable fields of a unit
type CreateUnitRequest struct {
	PropertyID string     `json:"property_id" validate:"required"`
	UnitNumber string     `json:"unit_number" validate:"required,max=50"`
	Type       string     `json:"type" validate:"max=50"`
	Bedrooms   int        `json:"bedrooms" validate:"gte=0"`
	Rent       float64    `json:"rent" validate:"gte=0"`
	Deposit    float64    `json:"deposit" validate:"gte=0"`
	Status     UnitStatus `json:"status" validate:"omitempty,oneof=vacant maintenance"`
}

// Build returns the unit to store; new units are never occupied
func (r CreateUnitRequest) Build() *Unit {
	u := &Unit{
		PropertyID: r.PropertyID,
		UnitNumber: r.UnitNumber,
		Type:       r.Type,
		Bedrooms:   r.Bedrooms,
		Rent:       r.Rent,
		Deposit:    r.Deposit,
		Status:     r.Status,
	}
	if u.Status == "" {
		u.Status = UnitVacant
	}
	return u
}

// UpdateUnitRequest holds the updatable fields of a unit
type UpdateUnitRequest struct {
	UnitNumber *string  `json:"unit_number" validate:"omitempty,min=1,max=50"`
	Type       *string  `json:"type" validate:"omitempty,max=50"`
	Bedrooms   *int     `json:"bedrooms" validate:"omitempty,gte=0"`
	Rent       *float64 `json:"rent" validate:"omitempty,gte=0"`
	Deposit    *float64 `json:"deposit" validate:"omitempty,gte=0"`
}

// Changes returns the columns the request sets
func (r UpdateUnitRequest) Changes() Changes {
	c := Changes{}
	setString(c, "unit_number", r.UnitNumber)
	setString(c, "type", r.Type)
	if r.Bedrooms != nil {
		c["bedrooms"] = *r.Bedrooms
	}
	setFloat(c, "rent", r.Rent)
	setFloat(c, "deposit", r.Deposit)
	return c
}

// Tenants

// CreateTenantRequest holds the creatable fields of a tenant
type CreateTenantRequest struct {
	Name             string           `json:"name" validate:"required,max=255"`
	Email            string           `json:"email" validate:"omitempty,email"`
	Phone            string           `json:"phone" validate:"max=50"`
	IDNumber         string           `json:"id_number" validate:"max=100"`
	PropertyID       string           `json:"property_id" validate:"required"`
	UnitID           string           `json:"unit_id"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`
}

// Build returns the tenant to store, without its unit assignment
func (r CreateTenantRequest) Build() *Tenant {
	return &Tenant{
		Name:             r.Name,
		Email:            r.Email,
		Phone:            r.Phone,
		IDNumber:         r.IDNumber,
		PropertyID:       r.PropertyID,
		EmergencyContact: r.EmergencyContact,
	}
}

// UpdateTenantRequest holds the updatable fields of a tenant
type UpdateTenantRequest struct {
	Name             *string           `json:"name" validate:"omitempty,min=1,max=255"`
	Email            *string           `json:"email" validate:"omitempty,email"`
	Phone            *string           `json:"phone" validate:"omitempty,max=50"`
	IDNumber         *string           `json:"id_number" validate:"omitempty,max=100"`
	EmergencyContact *EmergencyContact `json:"emergency_contact"`
}

// Changes returns the columns the request sets
func (r UpdateTenantRequest) Changes() Changes {
	c := Changes{}
	setString(c, "name", r.Name)
	setString(c, "email", r.Email)
	setString(c, "phone", r.Phone)
	setString(c, "id_number", r.IDNumber)
	if r.EmergencyContact != nil {
		c["emergency_name"] = r.EmergencyContact.Name
		c["emergency_phone"] = r.EmergencyContact.Phone
		c["emergency_relationship"] = r.EmergencyContact.Relationship
	}
	return c
}

// Leases

// CreateLeaseRequest holds the creatable fields of a lease
type CreateLeaseRequest struct {
	TenantID          string    `json:"tenant_id" validate:"required"`
	UnitID            string    `json:"unit_id" validate:"required"`
	PropertyID        string    `json:"property_id" validate:"required"`
	MonthlyRent       float64   `json:"monthly_rent" validate:"gt=0"`
	SecurityDeposit   float64   `json:"security_deposit" validate:"gte=0"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	LeaseType         LeaseType `json:"lease_type" validate:"omitempty,oneof=fixed month_to_month yearly"`
	RenewalOption     bool      `json:"renewal_option"`
	PaymentDueDay     int       `json:"payment_due_day" validate:"omitempty,min=1,max=28"`
	LateFee           float64   `json:"late_fee" validate:"gte=0"`
	PetPolicy         string    `json:"pet_policy"`
	UtilitiesIncluded bool      `json:"utilities_included"`
	SpecialTerms      string    `json:"special_terms"`
}

func (r CreateLeaseRequest) check() error {
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if !r.EndDate.After(r.StartDate) {
		return errors.New("end_date must be after start_date")
	}
	return nil
}

// Build returns the lease to store with status active
func (r CreateLeaseRequest) Build() *Lease {
	l := &Lease{
		TenantID:          r.TenantID,
		UnitID:            r.UnitID,
		PropertyID:        r.PropertyID,
		MonthlyRent:       r.MonthlyRent,
		SecurityDeposit:   r.SecurityDeposit,
		StartDate:         r.StartDate.UTC(),
		EndDate:           r.EndDate.UTC(),
		LeaseType:         r.LeaseType,
		Status:            LeaseActive,
		RenewalOption:     r.RenewalOption,
		PaymentDueDay:     r.PaymentDueDay,
		LateFee:           r.LateFee,
		PetPolicy:         r.PetPolicy,
		UtilitiesIncluded: r.UtilitiesIncluded,
		SpecialTerms:      r.SpecialTerms,
	}
	if l.LeaseType == "" {
		l.LeaseType = LeaseFixed
	}
	if l.PaymentDueDay == 0 {
		l.PaymentDueDay = 1
	}
	return l
}

// UpdateLeaseRequest holds the updatable terms of a lease.
// Dates and status change only through renewal and termination.
type UpdateLeaseRequest struct {
	MonthlyRent       *float64   `json:"monthly_rent" validate:"omitempty,gt=0"`
	SecurityDeposit   *float64   `json:"security_deposit" validate:"omitempty,gte=0"`
	LeaseType         *LeaseType `json:"lease_type" validate:"omitempty,oneof=fixed month_to_month yearly"`
	RenewalOption     *bool      `json:"renewal_option"`
	PaymentDueDay     *int       `json:"payment_due_day" validate:"omitempty,min=1,max=28"`
	LateFee           *float64   `json:"late_fee" validate:"omitempty,gte=0"`
	PetPolicy         *string    `json:"pet_policy"`
	UtilitiesIncluded *bool      `json:"utilities_included"`
	SpecialTerms      *string    `json:"special_terms"`
}

// Changes returns the columns the request sets
func (r UpdateLeaseRequest) Changes() Changes {
	c := Changes{}
	setFloat(c, "monthly_rent", r.MonthlyRent)
	setFloat(c, "security_deposit", r.SecurityDeposit)
	if r.LeaseType != nil {
		c["lease_type"] = *r.LeaseType
	}
	if r.RenewalOption != nil {
		c["renewal_option"] = *r.RenewalOption
	}
	if r.PaymentDueDay != nil {
		c["payment_due_day"] = *r.PaymentDueDay
	}
	setFloat(c, "late_fee", r.LateFee)
	setString(c, "pet_policy", r.PetPolicy)
	if r.UtilitiesIncluded != nil {
		c["utilities_included"] = *r.UtilitiesIncluded
	}
	setString(c, "special_terms", r.SpecialTerms)
	return c
}

// RenewLeaseRequest extends a lease
type RenewLeaseRequest struct {
	EndDate      time.Time `json:"end_date"`
	SpecialTerms *string   `json:"special_terms"`
}

func (r RenewLeaseRequest) check() error {
	if r.EndDate.IsZero() {
		return errors.New("end_date is required")
	}
	return nil
}

// AssignTenantRequest names the tenant moving into a unit
type AssignTenantRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
}

// Payments

// CreatePaymentRequest holds the creatable fields of a payment
type CreatePaymentRequest struct {
	TenantID   string        `json:"tenant_id" validate:"required"`
	UnitID     string        `json:"unit_id" validate:"required"`
	PropertyID string        `json:"property_id" validate:"required"`
	Amount     float64       `json:"amount" validate:"gt=0"`
	Type       PaymentType   `json:"type" validate:"omitempty,oneof=rent deposit late_fee maintenance utilities"`
	Method     string        `json:"method" validate:"max=50"`
	DueDate    time.Time     `json:"due_date"`
	PaidDate   *time.Time    `json:"paid_date"`
	Status     PaymentStatus `json:"status" validate:"omitempty,oneof=pending paid partial"`
	Reference  string        `json:"reference" validate:"max=255"`
	Notes      string        `json:"notes"`
}

func (r CreatePaymentRequest) check() error {
	if r.DueDate.IsZero() {
		return errors.New("due_date is required")
	}
	return nil
}

// Build returns the payment to store; a paid payment without a date is paid now
func (r CreatePaymentRequest) Build(now time.Time) *Payment {
	p := &Payment{
		TenantID:   r.TenantID,
		UnitID:     r.UnitID,
		PropertyID: r.PropertyID,
		Amount:     r.Amount,
		Type:       r.Type,
		Method:     r.Method,
		DueDate:    r.DueDate.UTC(),
		PaidDate:   r.PaidDate,
		Status:     r.Status,
		Reference:  r.Reference,
		Notes:      r.Notes,
	}
	if p.Type == "" {
		p.Type = PaymentRent
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	if p.Status == PaymentPaid && p.PaidDate == nil {
		p.PaidDate = &now
	}
	return p
}

// UpdatePaymentRequest holds the updatable fields of a payment
type UpdatePaymentRequest struct {
	Amount    *float64       `json:"amount" validate:"omitempty,gt=0"`
	Method    *string        `json:"method" validate:"omitempty,max=50"`
	DueDate   *time.Time     `json:"due_date"`
	PaidDate  *time.Time     `json:"paid_date"`
	Status    *PaymentStatus `json:"status" validate:"omitempty,oneof=pending paid partial"`
	Reference *string        `json:"reference" validate:"omitempty,max=255"`
	Notes     *string        `json:"notes"`
}

// Changes returns the columns the request sets
func (r UpdatePaymentRequest) Changes(now time.Time) Changes {
	c := Changes{}
	setFloat(c, "amount", r.Amount)
	setString(c, "method", r.Method)
	if r.DueDate != nil {
		c["due_date"] = r.DueDate.UTC()
	}
	if r.PaidDate != nil {
		c["paid_date"] = r.PaidDate.UTC()
	}
	if r.Status != nil {
		c["status"] = *r.Status
		if *r.Status == PaymentPaid && r.PaidDate == nil {
			c["paid_date"] = now
		}
		if *r.Status == PaymentPending {
			c["paid_date"] = nil
		}
	}
	setString(c, "reference", r.Reference)
	setString(c, "notes", r.Notes)
	return c
}

// Maintenance

// CreateMaintenanceRequest holds the creatable fields of a maintenance request
type CreateMaintenanceRequest struct {
	PropertyID    string              `json:"property_id" validate:"required"`
	UnitID        *string             `json:"unit_id"`
	TenantID      *string             `json:"tenant_id"`
	Title         string              `json:"title" validate:"required,max=255"`
	Description   string              `json:"description"`
	Category      string              `json:"category" validate:"max=50"`
	Priority      MaintenancePriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	EstimatedCost *float64            `json:"estimated_cost" validate:"omitempty,gte=0"`
}

// Build returns the request to store with status pending
func (r CreateMaintenanceRequest) Build() *Maintenance {
	m := &Maintenance{
		PropertyID:    r.PropertyID,
		UnitID:        nonEmpty(r.UnitID),
		TenantID:      nonEmpty(r.TenantID),
		Title:         r.Title,
		Description:   r.Description,
		Category:      r.Category,
		Priority:      r.Priority,
		Status:        MaintenancePending,
		EstimatedCost: r.EstimatedCost,
	}
	if m.Priority == "" {
		m.Priority = PriorityMedium
	}
	return m
}

// UpdateMaintenanceRequest holds the updatable fields of a maintenance request
type UpdateMaintenanceRequest struct {
	Title         *string              `json:"title" validate:"omitempty,min=1,max=255"`
	Description   *string              `json:"description"`
	Category      *string              `json:"category" validate:"omitempty,max=50"`
	Priority      *MaintenancePriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status        *MaintenanceStatus   `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	EstimatedCost *float64             `json:"estimated_cost" validate:"omitempty,gte=0"`
	ActualCost    *float64             `json:"actual_cost" validate:"omitempty,gte=0"`
}

// Changes returns the columns the request sets
func (r UpdateMaintenanceRequest) Changes(now time.Time) Changes {
	c := Changes{}
	setString(c, "title", r.Title)
	setString(c, "description", r.Description)
	setString(c, "category", r.Category)
	if r.Priority != nil {
		c["priority"] = *r.Priority
	}
	if r.Status != nil {
		c["status"] = *r.Status
		if *r.Status == MaintenanceCompleted {
			c["completed_at"] = now
		} else {
			c["completed_at"] = nil
		}
	}
	setFloat(c, "estimated_cost", r.EstimatedCost)
	setFloat(c, "actual_cost", r.ActualCost)
	return c
}

// Users

// CreateUserRequest registers a staff user known to the identity provider
type CreateUserRequest struct {
	ID          string   `json:"id" validate:"required,max=255"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Name        string   `json:"name" validate:"max=255"`
	Role        UserRole `json:"role" validate:"required,oneof=super_admin admin"`
	PropertyIDs []string `json:"property_ids" validate:"dive,required"`
}

// Build returns the user to store
func (r CreateUserRequest) Build() *User {
	ids := r.PropertyIDs
	if ids == nil {
		ids = []string{}
	}
	return &User{
		Base:        Base{ID: r.ID},
		Email:       r.Email,
		Name:        r.Name,
		Role:        r.Role,
		PropertyIDs: ids,
	}
}

// UpdateUserRequest changes a staff user's role or assignments
type UpdateUserRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=255"`
	Role        *UserRole `json:"role" validate:"omitempty,oneof=super_admin admin"`
	PropertyIDs *[]string `json:"property_ids" validate:"omitempty,dive,required"`
}

// Changes returns the columns the request sets
func (r UpdateUserRequest) Changes() Changes {
	c := Changes{}
	setString(c, "name", r.Name)
	if r.Role != nil {
		c["role"] = *r.Role
	}
	if r.PropertyIDs != nil {
		ids := *r.PropertyIDs
		if ids == nil {
			ids = []string{}
		}
		encoded, _ := json.Marshal(ids)
		c["property_ids"] = string(encoded)
	}
	return c
}

func setString(c Changes, column string, v *string) {
	if v != nil {
		c[column] = *v
	}
}

func setFloat(c Changes, column string, v *float64) {
	if v != nil {
		c[column] = *v
	}
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
