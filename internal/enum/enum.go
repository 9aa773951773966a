package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "Pending"
	OrderStatusPreparing = "Preparing"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

const (
	WalletTxTopUp  = "TOPUP"
	WalletTxDebit  = "ORDER_DEBIT"
	WalletTxRefund = "REFUND"
)

// ── Roles ──

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentModeWallet = "WALLET"
	PaymentModeUPI    = "UPI"
	PaymentModeCard   = "CARD"
)

const (
	ShiftMorning   = "MORNING"
	ShiftAfternoon = "AFTERNOON"
	ShiftEvening   = "EVENING"
)
