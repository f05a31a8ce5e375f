package sequence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "SB-00001", Format(DocTypeSaleBill, 1))
	require.Equal(t, "PB-00042", Format(DocTypePurchaseBill, 42))
	require.Equal(t, "SB-123456", Format(DocTypeSaleBill, 123456))
}

func TestDocumentTypeTag(t *testing.T) {
	require.Equal(t, "SB", DocTypeSaleBill.Tag())
	require.Equal(t, "PB", DocTypePurchaseBill.Tag())
	require.Equal(t, "BILL", DocumentType("unknown").Tag())
}

func TestDocumentTypeValid(t *testing.T) {
	require.True(t, DocTypeSaleBill.Valid())
	require.True(t, DocTypePurchaseBill.Valid())
	require.False(t, DocumentType("quotation").Valid())
}
