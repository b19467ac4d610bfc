package models

import "time"

type Passport struct {
	Surname    string   `json:"surname"`
	GivenNames []string `json:"given_names"`
	BirthDate  string   `json:"birth_date"`
}

// FirstName returns the first given name or an empty string.
func (p *Passport) FirstName() string {
	if p == nil || len(p.GivenNames) == 0 {
		return ""
	}
	return p.GivenNames[0]
}

type Vehicle struct {
	LicensePlate string `json:"license_plate"`
	VIN          string `json:"vin"`
	Make         string `json:"make"`
	Model        string `json:"model"`
}

// UserRecord holds the data collected for one user during the flow.
type UserRecord struct {
	Passport          *Passport `json:"passport,omitempty"`
	Vehicle           *Vehicle  `json:"vehicle,omitempty"`
	PassportConfirmed bool      `json:"passport_confirmed"`
	VehicleConfirmed  bool      `json:"vehicle_confirmed"`
}

// Empty reports whether nothing has been collected yet.
func (r UserRecord) Empty() bool {
	return r.Passport == nil && r.Vehicle == nil
}

// IssuedPolicy is what gets recorded once a policy document was delivered.
type IssuedPolicy struct {
	Number   string
	UserID   int64
	Passport Passport
	Vehicle  Vehicle
	PriceUSD int
	IssuedAt time.Time
}
