package settlement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMoney(t *testing.T, amount float64) valueobject.Money {
	t.Helper()
	return valueobject.NewMoneyINRFromFloat(amount)
}

func TestPaymentMethodIsValid(t *testing.T) {
	assert.True(t, MethodCash.IsValid())
	assert.True(t, MethodBankTransfer.IsValid())
	assert.True(t, MethodCheque.IsValid())
	assert.True(t, MethodOnline.IsValid())
	assert.False(t, PaymentMethod("BARTER").IsValid())
}

func TestMethodDetailsValidate(t *testing.T) {
	t.Run("cash needs no sub-fields", func(t *testing.T) {
		errs := make(ValidationErrors)
		CashMethod().Validate(errs)
		assert.False(t, errs.HasErrors())
	})

	t.Run("complete bank transfer passes", func(t *testing.T) {
		errs := make(ValidationErrors)
		BankTransferMethod("0012345678", "Acme Supplies Pvt Ltd").Validate(errs)
		assert.False(t, errs.HasErrors())
	})

	t.Run("bank transfer with missing fields fails per field", func(t *testing.T) {
		errs := make(ValidationErrors)
		BankTransferMethod("", "").Validate(errs)
		assert.Contains(t, errs, "method.bank.account_number")
		assert.Contains(t, errs, "method.bank.account_name")
	})

	t.Run("cheque without date fails", func(t *testing.T) {
		errs := make(ValidationErrors)
		ChequeMethod("CHQ-1", time.Time{}).Validate(errs)
		assert.Contains(t, errs, "method.cheque.cheque_date")
		assert.NotContains(t, errs, "method.cheque.cheque_number")
	})

	t.Run("online without transaction id fails", func(t *testing.T) {
		errs := make(ValidationErrors)
		OnlineMethod("", time.Now()).Validate(errs)
		assert.Contains(t, errs, "method.online.transaction_id")
	})

	t.Run("missing sub-record reports all fields", func(t *testing.T) {
		errs := make(ValidationErrors)
		MethodDetails{Method: MethodOnline}.Validate(errs)
		assert.Contains(t, errs, "method.online.transaction_id")
		assert.Contains(t, errs, "method.online.paid_at")
	})
}

func TestMethodDetailsReference(t *testing.T) {
	assert.Equal(t, "", CashMethod().Reference())
	assert.Equal(t, "0012345678", BankTransferMethod("0012345678", "Acme").Reference())
	assert.Equal(t, "CHQ-42", ChequeMethod("CHQ-42", time.Now()).Reference())
	assert.Equal(t, "UPI-778899", OnlineMethod("UPI-778899", time.Now()).Reference())
}

func TestMethodDetailsJSON(t *testing.T) {
	t.Run("omits absent sub-records", func(t *testing.T) {
		data, err := json.Marshal(CashMethod())
		require.NoError(t, err)
		assert.NotContains(t, string(data), "bank")
		assert.NotContains(t, string(data), "cheque")
	})

	t.Run("round trips the discriminated record", func(t *testing.T) {
		original := BankTransferMethod("0012345678", "Acme Supplies Pvt Ltd")
		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded MethodDetails
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, MethodBankTransfer, decoded.Method)
		require.NotNil(t, decoded.Bank)
		assert.Equal(t, "Acme Supplies Pvt Ltd", decoded.Bank.AccountName)
		assert.Nil(t, decoded.Cheque)
	})
}
