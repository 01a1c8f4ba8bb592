package xmlfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

const activitiesXML = `<?xml version="1.0" encoding="UTF-8"?>
<iati-activities version="2.02" generated-datetime="2016-07-01T00:00:00Z">
  <iati-activity default-currency="EUR" xml:lang="en">
    <iati-identifier>XM-DAC-1-100</iati-identifier>
    <title><narrative xml:lang="sw">Mradi</narrative></title>
    <transaction>
      <transaction-type code="3"/>
      <transaction-date iso-date="2013-06-01"/>
      <value value-date="2013-06-01">100.5</value>
    </transaction>
  </iati-activity>
  <iati-activity>
    <iati-identifier>XM-DAC-1-101</iati-identifier>
  </iati-activity>
</iati-activities>
`

func TestDecode_Activities(t *testing.T) {
	doc, err := Decode(strings.NewReader(activitiesXML))
	require.NoError(t, err)

	assert.Equal(t, "iati-activities", doc.RootTag)
	assert.Equal(t, "2.02", doc.Version)
	require.Len(t, doc.Records, 2)

	rec := doc.Records[0]
	assert.Equal(t, domain.KindActivity, rec.Kind)
	assert.Equal(t, "2.02", rec.FileVersion)
	assert.Equal(t, "EUR", rec.Root.Attr("default-currency"))
	assert.Equal(t, "en", rec.Root.Attr("xml:lang"))
	assert.Equal(t, "XM-DAC-1-100", rec.Root.ChildText("iati-identifier"))

	tr := rec.Root.Find("transaction")
	require.NotNil(t, tr)
	assert.Equal(t, "3", domain.TransactionType(tr))
	assert.Equal(t, "100.5", tr.ChildText("value"))

	narrative := rec.Root.Find("title").Find("narrative")
	require.NotNil(t, narrative)
	assert.Equal(t, "sw", narrative.Attr("xml:lang"))
	assert.Equal(t, "Mradi", narrative.Text)
}

func TestDecode_Organisations(t *testing.T) {
	doc, err := Decode(strings.NewReader(
		`<iati-organisations version="2.02"><iati-organisation><name><narrative>Org</narrative></name></iati-organisation></iati-organisations>`))
	require.NoError(t, err)

	assert.Equal(t, "iati-organisations", doc.RootTag)
	require.Len(t, doc.Records, 1)
	assert.Equal(t, domain.KindOrganisation, doc.Records[0].Kind)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader("<iati-activities><iati-activity></iati-activities>"))
	require.Error(t, err)

	_, err = Decode(strings.NewReader(""))
	require.Error(t, err)
}
