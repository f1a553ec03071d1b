package settlement

import "time"

// PaymentMethod identifies how a voucher was paid or received
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCheque       PaymentMethod = "CHEQUE"
	MethodOnline       PaymentMethod = "ONLINE"
)

// IsValid returns true if the payment method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCheque, MethodOnline:
		return true
	}
	return false
}

// BankDetails carries the sub-fields required for bank transfers
type BankDetails struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// ChequeDetails carries the sub-fields required for cheque payments
type ChequeDetails struct {
	ChequeNumber string    `json:"cheque_number"`
	ChequeDate   time.Time `json:"cheque_date"`
}

// OnlineDetails carries the sub-fields required for online payments
type OnlineDetails struct {
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
}

// MethodDetails is a discriminated record for mode-specific voucher fields.
// Exactly the sub-record matching Method may be set; cash needs none.
type MethodDetails struct {
	Method PaymentMethod  `json:"method"`
	Bank   *BankDetails   `json:"bank,omitempty"`
	Cheque *ChequeDetails `json:"cheque,omitempty"`
	Online *OnlineDetails `json:"online,omitempty"`
}

// CashMethod returns details for a cash voucher
func CashMethod() MethodDetails {
	return MethodDetails{Method: MethodCash}
}

// BankTransferMethod returns details for a bank transfer voucher
func BankTransferMethod(accountNumber, accountName string) MethodDetails {
	return MethodDetails{
		Method: MethodBankTransfer,
		Bank:   &BankDetails{AccountNumber: accountNumber, AccountName: accountName},
	}
}

// ChequeMethod returns details for a cheque voucher
func ChequeMethod(chequeNumber string, chequeDate time.Time) MethodDetails {
	return MethodDetails{
		Method: MethodCheque,
		Cheque: &ChequeDetails{ChequeNumber: chequeNumber, ChequeDate: chequeDate},
	}
}

// OnlineMethod returns details for an online payment voucher
func OnlineMethod(transactionID string, paidAt time.Time) MethodDetails {
	return MethodDetails{
		Method: MethodOnline,
		Online: &OnlineDetails{TransactionID: transactionID, PaidAt: paidAt},
	}
}

// Reference returns the external reference carried by the mode sub-fields,
// empty for cash
func (d MethodDetails) Reference() string {
	switch d.Method {
	case MethodBankTransfer:
		if d.Bank != nil {
			return d.Bank.AccountNumber
		}
	case MethodCheque:
		if d.Cheque != nil {
			return d.Cheque.ChequeNumber
		}
	case MethodOnline:
		if d.Online != nil {
			return d.Online.TransactionID
		}
	}
	return ""
}

// Validate appends mode-specific field errors into errs, keyed by field path
func (d MethodDetails) Validate(errs ValidationErrors) {
	switch d.Method {
	case MethodCash:
		// no sub-fields
	case MethodBankTransfer:
		if d.Bank == nil || d.Bank.AccountNumber == "" {
			errs.Add("method.bank.account_number", "Bank account number is required")
		}
		if d.Bank == nil || d.Bank.AccountName == "" {
			errs.Add("method.bank.account_name", "Bank account name is required")
		}
	case MethodCheque:
		if d.Cheque == nil || d.Cheque.ChequeNumber == "" {
			errs.Add("method.cheque.cheque_number", "Cheque number is required")
		}
		if d.Cheque == nil || d.Cheque.ChequeDate.IsZero() {
			errs.Add("method.cheque.cheque_date", "Cheque date is required")
		}
	case MethodOnline:
		if d.Online == nil || d.Online.TransactionID == "" {
			errs.Add("method.online.transaction_id", "Online transaction ID is required")
		}
		if d.Online == nil || d.Online.PaidAt.IsZero() {
			errs.Add("method.online.paid_at", "Online payment date is required")
		}
	default:
		errs.Add("method", "Payment method is not valid")
	}
}
