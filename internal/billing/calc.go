package billing

import (
	"github.com/shopspring/decimal"
)

var decimalTwo = decimal.NewFromInt(2)

// CalcLine is the calculator input for one line item.
type CalcLine struct {
	Quantity     float64
	UnitPrice    float64
	Discount     float64
	DiscountType DiscountType
	TaxRate      float64
	TaxType      TaxType
}

// LineAmounts holds the derived amounts for one line.
type LineAmounts struct {
	DiscountAmount float64
	Subtotal       float64
	CGST           float64
	SGST           float64
	IGST           float64
	TaxAmount      float64
	Total          float64
}

// Totals holds the document-level rollups.
type Totals struct {
	Subtotal   float64
	Discount   float64
	GSTTotal   float64
	CGST       float64
	SGST       float64
	IGST       float64
	RoundOff   float64
	GrandTotal float64
}

// Calculate derives per-line amounts and document rollups from the raw line
// inputs. All arithmetic runs on fixed-point decimals. Intermediate amounts
// keep full precision; only the grand total is rounded, half-up to two
// places.
//
// Per line: gross = qty*unitPrice, the discount is percentage-of-gross or a
// flat amount (clamped to gross), tax applies to the discounted subtotal. GST
// splits evenly into CGST and SGST; IGST stays whole; "none" skips tax.
// docDiscount reduces the grand total after line rollups; roundOff is applied
// once at the end.
func Calculate(lines []CalcLine, docDiscount, roundOff float64) ([]LineAmounts, Totals) {
	amounts := make([]LineAmounts, len(lines))

	var (
		subtotal = decimal.Zero
		discount = decimal.Zero
		cgst     = decimal.Zero
		sgst     = decimal.Zero
		igst     = decimal.Zero
		total    = decimal.Zero
	)

	for i, ln := range lines {
		qty := decimal.NewFromFloat(ln.Quantity)
		price := decimal.NewFromFloat(ln.UnitPrice)
		gross := qty.Mul(price)

		var disc decimal.Decimal
		switch ln.DiscountType {
		case DiscountFlat:
			disc = decimal.NewFromFloat(ln.Discount)
		default:
			disc = gross.Mul(decimal.NewFromFloat(ln.Discount)).Div(decimal.NewFromInt(100))
		}
		if disc.GreaterThan(gross) {
			disc = gross
		}
		if disc.IsNegative() {
			disc = decimal.Zero
		}

		lineSub := gross.Sub(disc)

		var lineCGST, lineSGST, lineIGST decimal.Decimal
		if ln.TaxRate > 0 {
			tax := lineSub.Mul(decimal.NewFromFloat(ln.TaxRate)).Div(decimal.NewFromInt(100))
			switch ln.TaxType {
			case TaxTypeIGST:
				lineIGST = tax
			case TaxTypeNone:
			default:
				half := tax.Div(decimalTwo)
				lineCGST = half
				lineSGST = half
			}
		}

		lineTax := lineCGST.Add(lineSGST).Add(lineIGST)
		lineTotal := lineSub.Add(lineTax)

		amounts[i] = LineAmounts{
			DiscountAmount: disc.InexactFloat64(),
			Subtotal:       lineSub.InexactFloat64(),
			CGST:           lineCGST.InexactFloat64(),
			SGST:           lineSGST.InexactFloat64(),
			IGST:           lineIGST.InexactFloat64(),
			TaxAmount:      lineTax.InexactFloat64(),
			Total:          lineTotal.InexactFloat64(),
		}

		subtotal = subtotal.Add(lineSub)
		discount = discount.Add(disc)
		cgst = cgst.Add(lineCGST)
		sgst = sgst.Add(lineSGST)
		igst = igst.Add(lineIGST)
		total = total.Add(lineTotal)
	}

	docDisc := decimal.NewFromFloat(docDiscount)
	if docDisc.IsNegative() {
		docDisc = decimal.Zero
	}
	round := decimal.NewFromFloat(roundOff)

	gstTotal := cgst.Add(sgst).Add(igst)
	grand := total.Sub(docDisc).Add(round)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return amounts, Totals{
		Subtotal:   subtotal.InexactFloat64(),
		Discount:   discount.Add(docDisc).InexactFloat64(),
		GSTTotal:   gstTotal.InexactFloat64(),
		CGST:       cgst.InexactFloat64(),
		SGST:       sgst.InexactFloat64(),
		IGST:       igst.InexactFloat64(),
		RoundOff:   round.InexactFloat64(),
		GrandTotal: grand.Round(2).InexactFloat64(),
	}
}
