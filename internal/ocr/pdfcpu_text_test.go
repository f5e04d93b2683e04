package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentStreamText(t *testing.T) {
	stream := []byte(`BT
/F1 12 Tf
72 712 Td
(Invoice No: INV-1) Tj
0 -14 Td
[(Total) -300 (1500.00)] TJ
ET`)
	assert.Equal(t, "Invoice No: INV-1\nTotal 1500.00", contentStreamText(stream))
}

func TestContentStreamText_Escapes(t *testing.T) {
	assert.Equal(t, "Café (A)", contentStreamText([]byte(`BT (Caf\351 \(A\)) Tj ET`)))
	assert.Equal(t, "İstanbul", contentStreamText([]byte(`BT <FEFF0130> Tj (stanbul) Tj ET`)))
}

func TestContentStreamText_NextLineOperators(t *testing.T) {
	stream := []byte(`BT 14 TL (line one) Tj T* (line two) Tj (line three) ' ET`)
	assert.Equal(t, "line one\nline two\nline three", contentStreamText(stream))
}

func TestContentStreamText_IgnoresNonTextOperators(t *testing.T) {
	stream := []byte("q 1 0 0 1 0 0 cm /Im1 Do Q % comment (hidden) Tj\nBT (shown) Tj ET")
	assert.Equal(t, "shown", contentStreamText(stream))
}
