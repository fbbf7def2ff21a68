package models

const (
	HouseStatusActive   = "active"
	HouseStatusInactive = "inactive"
)

// House carries only what the auth core needs to validate house references.
type House struct {
	ID          int64
	HouseNumber int
	Status      string
}
