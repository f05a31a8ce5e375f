package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestValidateMethodFields(t *testing.T) {
	card := CardTypeDebit

	cases := []struct {
		name    string
		in      CreatePaymentInput
		wantErr bool
	}{
		{"cash needs nothing extra", CreatePaymentInput{Method: MethodCash, Amount: 10}, false},
		{"other needs nothing extra", CreatePaymentInput{Method: MethodOther, Amount: 10}, false},
		{"cheque missing everything", CreatePaymentInput{Method: MethodCheque, Amount: 10}, true},
		{"cheque missing date", CreatePaymentInput{Method: MethodCheque, Amount: 10, ChequeNumber: str("001"), BankName: str("SBI")}, true},
		{"cheque complete", CreatePaymentInput{Method: MethodCheque, Amount: 10, ChequeNumber: str("001"), BankName: str("SBI"), ChequeDate: timePtr(time.Now())}, false},
		{"online transfer missing utr", CreatePaymentInput{Method: MethodOnlineTransfer, Amount: 10, BankName: str("SBI")}, true},
		{"online transfer complete", CreatePaymentInput{Method: MethodOnlineTransfer, Amount: 10, BankName: str("SBI"), UTRID: str("UTR1")}, false},
		{"card missing type", CreatePaymentInput{Method: MethodCard, Amount: 10, CardLastFour: str("1234")}, true},
		{"card complete", CreatePaymentInput{Method: MethodCard, Amount: 10, CardLastFour: str("1234"), CardType: &card}, false},
		{"upi missing id", CreatePaymentInput{Method: MethodUPI, Amount: 10}, true},
		{"upi complete", CreatePaymentInput{Method: MethodUPI, Amount: 10, UPIID: str("a@upi")}, false},
		{"finance missing name", CreatePaymentInput{Method: MethodFinance, Amount: 10}, true},
		{"finance complete", CreatePaymentInput{Method: MethodFinance, Amount: 10, FinanceName: str("Bajaj")}, false},
		{"blank counts as missing", CreatePaymentInput{Method: MethodUPI, Amount: 10, UPIID: str("")}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMethodFields(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrPaymentFieldMissing)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBuildRecordDefaults(t *testing.T) {
	rec, err := BuildRecord(CreatePaymentInput{Method: MethodCash, Amount: 125.5}, 7)
	require.NoError(t, err)

	require.Equal(t, MethodCash, rec.Method)
	require.Equal(t, 125.5, rec.Amount)
	require.Equal(t, StatusCompleted, rec.Status)
	require.Equal(t, int64(7), rec.CreatedBy)
	require.WithinDuration(t, time.Now().UTC(), rec.Date, time.Minute)

	_, err = uuid.Parse(rec.Reference)
	require.NoError(t, err)
}

func TestBuildRecordKeepsExplicitStatusAndDate(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rec, err := BuildRecord(CreatePaymentInput{
		Method: MethodCash,
		Amount: 10,
		Status: StatusPending,
		Date:   &date,
	}, 7)
	require.NoError(t, err)

	require.Equal(t, StatusPending, rec.Status)
	require.Equal(t, date, rec.Date)
}

func TestBuildRecordRejectsInvalidMethodFields(t *testing.T) {
	_, err := BuildRecord(CreatePaymentInput{Method: MethodCheque, Amount: 10}, 7)
	require.ErrorIs(t, err, ErrPaymentFieldMissing)
}

func TestBuildRecordReferencesAreUnique(t *testing.T) {
	a, err := BuildRecord(CreatePaymentInput{Method: MethodCash, Amount: 1}, 1)
	require.NoError(t, err)
	b, err := BuildRecord(CreatePaymentInput{Method: MethodCash, Amount: 1}, 1)
	require.NoError(t, err)
	require.NotEqual(t, a.Reference, b.Reference)
}

func timePtr(t time.Time) *time.Time { return &t }
