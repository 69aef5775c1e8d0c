package domain

type TransactionType string

const (
	TransactionTypePayment        TransactionType = "PAIEMENT"
	TransactionTypeSubscription   TransactionType = "ABONNEMENT"
	TransactionTypePaymentRequest TransactionType = "REQUETE DE PAIEMENT"
)

type CollectType string

const (
	CollectTypeFees         CollectType = "FRAIS"
	CollectTypeSubscription CollectType = "ABONNEMENT"
)

type ReservationStatus string

const (
	ReservationStatusInProgress ReservationStatus = "IN PROGRESS"
	ReservationStatusCompleted  ReservationStatus = "COMPLETED"
	ReservationStatusFailed     ReservationStatus = "FAILED"
)

// Account is the administration service's view of a user. Balances are
// decimal strings owned by the remote ledger; this service only reads them
// and writes them back through AccountPatch.
type Account struct {
	ID               string `json:"id"`
	PhoneNumber      string `json:"numero"`
	FullName         string `json:"fullname"`
	Balance          string `json:"solde"`
	Premium          bool   `json:"premium"`
	PremiumActivated bool   `json:"premiumActivated"`
	ReferralPoints   int64  `json:"referralAmountToPoint"`
	ExpoPushToken    string `json:"expoPushToken"`
}

type AccountPatch struct {
	Balance          *string `json:"solde,omitempty"`
	Premium          *bool   `json:"premium,omitempty"`
	PremiumActivated *bool   `json:"premiumActivated,omitempty"`
	ReferralPoints   *int64  `json:"referralAmountToPoint,omitempty"`
}

// UpdateResult mirrors the affected-row count the administration service
// returns on mutations. Affected != 1 means the write did not land.
type UpdateResult struct {
	Affected int64 `json:"affected"`
}

type Transaction struct {
	ID                  string `json:"id"`
	Amount              string `json:"amount"`
	AmountBeforeSending string `json:"amountBeforeSending"`
	AmountAfterSending  string `json:"amountAfterSending"`
	SenderPhoneNumber   string `json:"senderPhoneNumber"`
	ReceiverPhoneNumber string `json:"receiverPhoneNumber"`
	Reference           string `json:"reference"`
	Fees                string `json:"fees"`
	Status              string `json:"status"`
	Type                string `json:"type"`
}

type NewTransaction struct {
	Amount              string `json:"amount"`
	AmountBeforeSending string `json:"amountBeforeSending"`
	AmountAfterSending  string `json:"amountAfterSending"`
	SenderPhoneNumber   string `json:"senderPhoneNumber"`
	ReceiverPhoneNumber string `json:"receiverPhoneNumber"`
	Reference           string `json:"reference"`
	Fees                string `json:"fees"`
	Status              string `json:"status,omitempty"`
	Type                string `json:"type"`
}

type TransactionPatch struct {
	Status *string `json:"status,omitempty"`
}

// HistoryEntry is the user-facing audit row (historique). The create call
// carries full sender/receiver snapshots; the orchestrator scrubs them from
// the returned entry before propagating it.
type HistoryEntry struct {
	ID                   string   `json:"id"`
	Sender               *Account `json:"sender,omitempty"`
	Receiver             *Account `json:"receiver,omitempty"`
	SenderIdentifier     string   `json:"senderIdentifiant"`
	ReceiverIdentifier   string   `json:"receiverIdentifiant"`
	ReferenceTransaction string   `json:"referenceTransaction"`
	TransactionType      string   `json:"transactionType"`
	Amount               string   `json:"amount"`
	Fees                 string   `json:"fees"`
	Status               string   `json:"status"`
	Icon                 string   `json:"icon"`
}

type NewHistoryEntry struct {
	Sender               *Account `json:"sender,omitempty"`
	Receiver             *Account `json:"receiver,omitempty"`
	SenderIdentifier     string   `json:"senderIdentifiant"`
	ReceiverIdentifier   string   `json:"receiverIdentifiant"`
	ReferenceTransaction string   `json:"referenceTransaction"`
	TransactionType      string   `json:"transactionType"`
	Amount               string   `json:"amount"`
	Fees                 string   `json:"fees"`
	Status               string   `json:"status"`
	Icon                 string   `json:"icon"`
}

type HistoryPatch struct {
	Status *string `json:"status,omitempty"`
}

// Reservation is the escrow row holding funds between debit and settlement.
type Reservation struct {
	ID                string            `json:"id"`
	Amount            string            `json:"amount"`
	Fees              string            `json:"fees"`
	FundsToSend       string            `json:"fundsToSend"`
	TransactionStatus ReservationStatus `json:"transactionStatus"`
	TransactionType   string            `json:"transactionType"`
}

type NewReservation struct {
	Amount            string            `json:"amount"`
	Fees              string            `json:"fees"`
	FundsToSend       string            `json:"fundsToSend"`
	TransactionStatus ReservationStatus `json:"transactionStatus"`
	TransactionType   string            `json:"transactionType"`
}

type ReservationPatch struct {
	Amount            *string            `json:"amount,omitempty"`
	TransactionStatus *ReservationStatus `json:"transactionStatus,omitempty"`
}

type CollectEntry struct {
	Amount      string      `json:"amount"`
	CollectType CollectType `json:"collectType"`
}

type Referral struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	HostID string `json:"hostId"`
	IsNew  bool   `json:"isNew"`
}

type ReferralPatch struct {
	IsNew *bool `json:"isNew,omitempty"`
}

type Notification struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}
