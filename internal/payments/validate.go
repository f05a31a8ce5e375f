package payments

import (
	"fmt"
)

// ValidateMethodFields checks the method-specific required fields of a payment
// input. Amount and method presence are covered by struct validation; this
// enforces the discriminant table.
func ValidateMethodFields(in CreatePaymentInput) error {
	switch in.Method {
	case MethodCheque:
		if isBlank(in.ChequeNumber) {
			return fmt.Errorf("%w: cheque_number is required for cheque payments", ErrPaymentFieldMissing)
		}
		if in.ChequeDate == nil {
			return fmt.Errorf("%w: cheque_date is required for cheque payments", ErrPaymentFieldMissing)
		}
		if isBlank(in.BankName) {
			return fmt.Errorf("%w: bank_name is required for cheque payments", ErrPaymentFieldMissing)
		}
	case MethodUPI:
		if isBlank(in.UPIID) {
			return fmt.Errorf("%w: upi_id is required for upi payments", ErrPaymentFieldMissing)
		}
	case MethodCard:
		if isBlank(in.CardLastFour) {
			return fmt.Errorf("%w: card_last_four is required for card payments", ErrPaymentFieldMissing)
		}
		if in.CardType == nil {
			return fmt.Errorf("%w: card_type is required for card payments", ErrPaymentFieldMissing)
		}
	case MethodOnlineTransfer:
		if isBlank(in.UTRID) {
			return fmt.Errorf("%w: utr_id is required for online transfer payments", ErrPaymentFieldMissing)
		}
	case MethodFinance:
		if isBlank(in.FinanceName) {
			return fmt.Errorf("%w: finance_name is required for finance payments", ErrPaymentFieldMissing)
		}
	case MethodCash, MethodOther:
		// no extra fields
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrPaymentFieldMissing, in.Method)
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}
