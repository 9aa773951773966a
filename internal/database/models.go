package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Customer struct {
	ID             uuid.UUID
	Name           string
	Email          string
	HashedPassword string
	DateOfBirth    pgtype.Date
	WalletBalance  pgtype.Numeric
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CustomerPhone struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Phone      string
	CreatedAt  time.Time
}

type Admin struct {
	ID             uuid.UUID
	Name           string
	Email          string
	HashedPassword string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Staff struct {
	ID             uuid.UUID
	Name           string
	Email          string
	HashedPassword string
	Role           string
	Salary         pgtype.Numeric
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type StaffShift struct {
	ID      uuid.UUID
	StaffID uuid.UUID
	Shift   string
}

type Offer struct {
	ID              uuid.UUID
	Description     string
	DiscountPercent pgtype.Numeric
	ValidUntil      time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MenuItem struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Category  string
	OfferID   pgtype.UUID
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID          uuid.UUID
	OrderNumber string
	CustomerID  uuid.UUID
	Status      string
	PaymentMode string
	TotalAmount pgtype.Numeric
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ItemID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

type WalletTransaction struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	OrderID      pgtype.UUID
	Type         string
	Amount       pgtype.Numeric
	BalanceAfter pgtype.Numeric
	CreatedAt    time.Time
}
