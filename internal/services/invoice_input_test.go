package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebill/server/internal/models"
)

func companyInput() *InvoiceInput {
	companyID := "11111111-1111-1111-1111-111111111111"
	return &InvoiceInput{
		Type:      models.InvoiceTypeCompany,
		Date:      ISODate{Time: time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)},
		CompanyID: &companyID,
		Materials: []MaterialInput{
			{MaterialName: "Biomedical waste", Quantity: dp("10"), Unit: "kg", Rate: dp("40")},
		},
	}
}

func TestValidateInvoiceInput(t *testing.T) {
	t.Run("valid company invoice", func(t *testing.T) {
		assert.NoError(t, validateInvoiceInput(companyInput(), true))
	})

	t.Run("company invoice requires companyId", func(t *testing.T) {
		in := companyInput()
		in.CompanyID = nil
		err := validateInvoiceInput(in, true)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "companyId", verr.Field)
	})

	t.Run("transporter invoice requires transporterId", func(t *testing.T) {
		in := companyInput()
		in.Type = models.InvoiceTypeTransporter
		err := validateInvoiceInput(in, true)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "transporterId", verr.Field)
	})

	t.Run("customer invoice requires customerName", func(t *testing.T) {
		in := companyInput()
		in.Type = models.InvoiceTypeCustomer
		err := validateInvoiceInput(in, true)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "customerName", verr.Field)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		in := companyInput()
		in.Type = "Vendor"
		assert.Error(t, validateInvoiceInput(in, true))
	})

	t.Run("create without materials requires subtotal", func(t *testing.T) {
		in := companyInput()
		in.Materials = nil
		err := validateInvoiceInput(in, true)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "subtotal", verr.Field)
	})

	t.Run("update without materials keeps existing subtotal", func(t *testing.T) {
		in := companyInput()
		in.Materials = nil
		assert.NoError(t, validateInvoiceInput(in, false))
	})

	t.Run("negative payment rejected", func(t *testing.T) {
		in := companyInput()
		in.PaymentReceived = dp("-1")
		assert.Error(t, validateInvoiceInput(in, true))
	})
}

func TestSubtotalFrom(t *testing.T) {
	t.Run("materials win over the scalar", func(t *testing.T) {
		in := companyInput()
		in.Subtotal = dp("9999")
		got, err := subtotalFrom(in, nil)
		require.NoError(t, err)
		assert.True(t, got.Equal(d("400.00")), "subtotal = %s", got)
	})

	t.Run("explicit amount beats quantity times rate", func(t *testing.T) {
		in := companyInput()
		in.Materials[0].Amount = dp("350")
		got, err := subtotalFrom(in, nil)
		require.NoError(t, err)
		assert.True(t, got.Equal(d("350.00")))
	})

	t.Run("scalar fallback without materials", func(t *testing.T) {
		in := companyInput()
		in.Materials = nil
		in.Subtotal = dp("1500")
		got, err := subtotalFrom(in, nil)
		require.NoError(t, err)
		assert.True(t, got.Equal(d("1500.00")))
	})

	t.Run("existing fallback on update", func(t *testing.T) {
		in := companyInput()
		in.Materials = nil
		existing := d("720.00")
		got, err := subtotalFrom(in, &existing)
		require.NoError(t, err)
		assert.True(t, got.Equal(existing))
	})

	t.Run("nothing to fall back to is an error", func(t *testing.T) {
		in := companyInput()
		in.Materials = nil
		_, err := subtotalFrom(in, nil)
		assert.Error(t, err)
	})
}

func TestBuildLineItems(t *testing.T) {
	in := companyInput()
	in.Materials[0].ManifestNo = "MF-9001"
	in.AdditionalCharges = []ChargeInput{
		{Description: "Transport", Amount: dp("200")},
	}

	items := buildLineItems(in)
	require.Len(t, items, 2)

	assert.False(t, items[0].IsCharge)
	assert.Equal(t, "Biomedical waste", items[0].Description)
	assert.Equal(t, "MF-9001", items[0].ManifestNo)
	assert.True(t, items[0].Amount.Equal(d("400.00")))

	assert.True(t, items[1].IsCharge)
	assert.Equal(t, "Transport", items[1].Description)
	assert.True(t, items[1].Amount.Equal(d("200.00")))
}

func TestBuildManifestRefs(t *testing.T) {
	refs := buildManifestRefs([]string{"MF-1", " MF-2 ", "MF-1", "", "MF-3"})
	require.Len(t, refs, 3)
	assert.Equal(t, "MF-1", refs[0].ManifestNo)
	assert.Equal(t, "MF-2", refs[1].ManifestNo)
	assert.Equal(t, "MF-3", refs[2].ManifestNo)
}

func TestChargesTotal(t *testing.T) {
	total := chargesTotal([]ChargeInput{
		{Quantity: dp("2"), Rate: dp("75")},
		{Amount: dp("50")},
		{}, // no figures at all counts as zero
	})
	assert.True(t, total.Equal(d("200.00")), "total = %s", total)
}

func TestISODate(t *testing.T) {
	t.Run("bare date", func(t *testing.T) {
		var d ISODate
		require.NoError(t, json.Unmarshal([]byte(`"2026-08-15"`), &d))
		assert.Equal(t, 2026, d.Year())
		assert.Equal(t, 15, d.Day())
	})

	t.Run("rfc3339 stamp", func(t *testing.T) {
		var d ISODate
		require.NoError(t, json.Unmarshal([]byte(`"2026-08-15T10:30:00Z"`), &d))
		assert.Equal(t, 10, d.Hour())
	})

	t.Run("null is zero", func(t *testing.T) {
		var d ISODate
		require.NoError(t, json.Unmarshal([]byte(`null`), &d))
		assert.True(t, d.IsZero())
	})

	t.Run("garbage is an error", func(t *testing.T) {
		var d ISODate
		assert.Error(t, json.Unmarshal([]byte(`"15/08/2026"`), &d))
	})

	t.Run("marshals as bare date", func(t *testing.T) {
		var d ISODate
		require.NoError(t, json.Unmarshal([]byte(`"2026-08-15"`), &d))
		out, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, `"2026-08-15"`, string(out))
	})
}
