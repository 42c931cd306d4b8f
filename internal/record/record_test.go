package record

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/curate/internal/models"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func sized(name string, size int64) models.File {
	return models.File{Name: name, Size: &size}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		file string
		want models.Source
	}{
		{"datacite.json", models.SourceDataCite},
		{"zenodo.json", models.SourceZenodo},
		{"inveniordm.json", models.SourceInvenioRDM},
		{"dspace.json", models.SourceDSpace},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := Detect(fixture(t, tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Detect([]byte(`{"hello":"world"}`))
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = Detect([]byte(`not json`))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDecode_DataCite(t *testing.T) {
	r, err := Decode(fixture(t, "datacite.json"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceDataCite, r.Source)
	assert.Equal(t, "Lake Geneva temperature series", r.Title)
	assert.Equal(t, "10.5281/zenodo.1234", r.DOI)
	require.NotNil(t, r.Description)
	assert.Equal(t, "Hourly temperature measurements.\nContact jane.doe@epfl.ch", *r.Description)
	assert.Contains(t, r.DescriptionHTML, "<b>temperature</b>")

	require.Len(t, r.Creators, 2)
	assert.Equal(t, []string{"EPFL"}, r.Creators[0].Affiliations)
	assert.True(t, r.Creators[0].HasScheme("orcid"))
	assert.Equal(t, "0000-0002-1825-0097", r.Creators[0].Identifiers[0].Value)
	assert.Equal(t, []string{"Acme University"}, r.Creators[1].Affiliations)
	assert.False(t, r.Creators[1].HasScheme("orcid"))

	assert.Equal(t, []string{"cc-by-4.0"}, r.Licenses)
	assert.Equal(t, []string{"limnology", "temperature", "climate"}, r.Keywords)
	require.Len(t, r.Related, 1)
	assert.Equal(t, "doi", r.Related[0].Scheme)
	assert.Equal(t, "journalarticle", r.Related[0].ResourceType)
	assert.Equal(t, []string{"SNSF 200021"}, r.Funding)
	require.NotNil(t, r.Thesis)
	assert.Equal(t, []string{"Smith, Prof."}, r.Thesis.Supervisors)
	assert.Nil(t, r.Files)
}

func TestDecode_Zenodo(t *testing.T) {
	r, err := Decode(fixture(t, "zenodo.json"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceZenodo, r.Source)
	assert.Equal(t, "5678", r.ID)
	require.NotNil(t, r.Description, "an empty description is still present")
	assert.Empty(t, *r.Description)
	assert.Equal(t, []string{"mit"}, r.Licenses)
	assert.Equal(t, []string{"ai, ml, data"}, r.Keywords)
	assert.Equal(t, models.AccessEmbargoed, r.Access)
	assert.Nil(t, r.Related)
	assert.Nil(t, r.Funding)
	assert.Equal(t, []models.File{sized("data.xlsx", 1024), sized(".DS_Store", 6)}, r.Files)
	require.NotNil(t, r.Thesis)
	assert.Equal(t, "EPFL", r.Thesis.University)
	assert.Empty(t, r.Thesis.Supervisors)
	assert.True(t, r.Creators[0].HasScheme("orcid"))
}

func TestDecode_InvenioRDM(t *testing.T) {
	r, err := Decode(fixture(t, "inveniordm.json"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceInvenioRDM, r.Source)
	assert.Equal(t, "10.5281/zenodo.999", r.DOI)
	assert.Equal(t, "https://zenodo.org/records/999", r.LandingURL)
	assert.Equal(t, []string{"École Polytechnique Fédérale de Lausanne"}, r.Creators[0].Affiliations)
	assert.Equal(t, []string{"cc-by-4.0"}, r.Licenses)
	assert.Equal(t, []string{"microscopy", "biology"}, r.Keywords)
	require.Len(t, r.Related, 1)
	assert.Equal(t, "journal article", r.Related[0].ResourceType)
	assert.Equal(t, []string{"Swiss National Science Foundation 200021_123 Imaging"}, r.Funding)
	assert.Equal(t, models.AccessOpen, r.Access)
	assert.Equal(t, []models.File{sized("README.md", 10), sized("images.zip", 2048)}, r.Files)
	assert.Nil(t, r.Thesis)
}

func TestDecode_DSpace(t *testing.T) {
	r, err := Decode(fixture(t, "dspace.json"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceDSpace, r.Source)
	assert.Equal(t, "a0c90826-53bb-4cb9-bde8-02aa6933fdc9", r.ID)
	assert.Equal(t, "Hydrology model outputs", r.Title)
	assert.Equal(t, "https://hdl.handle.net/20.500.14299/1234", r.LandingURL)

	require.Len(t, r.Creators, 2)
	assert.Equal(t, []string{"EPFL"}, r.Creators[0].Affiliations)
	assert.True(t, r.Creators[0].HasScheme("orcid"))
	assert.Empty(t, r.Creators[1].Affiliations)
	assert.False(t, r.Creators[1].HasScheme("orcid"))

	assert.Equal(t, []string{"cc-by-4.0"}, r.Licenses)
	assert.Equal(t, []string{"hydrology", "Rhône", "modelling"}, r.Keywords)
	require.Len(t, r.Related, 1)
	assert.Equal(t, "doi", r.Related[0].Scheme)
	assert.Equal(t, "isreferencedby", r.Related[0].Relation)
	assert.Equal(t, models.AccessOpen, r.Access)
	assert.Equal(t, []models.File{sized("outputs.nc", 4096)}, r.Files)
	assert.Nil(t, r.Funding)
	assert.Nil(t, r.Thesis)
}

func TestDecode_MalformedFieldsStayLocal(t *testing.T) {
	raw := []byte(`{
		"id": 77,
		"metadata": {
			"title": "Sensor logs",
			"license": "MIT",
			"keywords": "ai, ml",
			"description": {"unexpected": true},
			"creators": [{"name": "Doe, Jane", "affiliation": "EPFL", "orcid": "0000-0002-1825-0097"}],
			"related_identifiers": "none",
			"grants": [{"code": 200021, "title": ["Imaging"]}]
		},
		"files": [{"key": "empty.csv", "size": 0}, {"key": "notes.txt", "size": "big"}]
	}`)

	r, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, models.SourceZenodo, r.Source)
	assert.Equal(t, "Sensor logs", r.Title)
	assert.Equal(t, []string{"mit"}, r.Licenses)
	assert.Equal(t, []string{"ai, ml"}, r.Keywords)
	assert.Nil(t, r.Description)
	assert.Nil(t, r.Related)
	require.Len(t, r.Creators, 1)
	assert.Equal(t, []string{"EPFL"}, r.Creators[0].Affiliations)
	assert.True(t, r.Creators[0].HasScheme("orcid"))
	assert.Equal(t, []string{"Imaging"}, r.Funding)
	require.Len(t, r.Files, 2)
	assert.Equal(t, sized("empty.csv", 0), r.Files[0])
	assert.Nil(t, r.Files[1].Size)
}

func TestDecode_SyntaxErrorFails(t *testing.T) {
	_, err := DecodeAs(models.SourceZenodo, []byte(`{"metadata": {`))
	assert.Error(t, err)
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"EPFL"`, "EPFL"},
		{`{"title": "Imaging"}`, "Imaging"},
		{`{"other": 1}`, ""},
		{`200021`, "200021"},
		{`true`, "true"},
		{`["first", "second"]`, "first"},
		{`[]`, ""},
		{`null`, ""},
	}
	for _, tt := range tests {
		var f flexString
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f), tt.in)
		assert.Equal(t, tt.want, string(f), tt.in)
	}
}

func TestFlexList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`"EPFL"`, []string{"EPFL"}},
		{`["EPFL", {"name": "ETH"}]`, []string{"EPFL", "ETH"}},
		{`[]`, []string{}},
		{`null`, nil},
		{`{"value": "x"}`, []string{"x"}},
	}
	for _, tt := range tests {
		var l flexList
		require.NoError(t, json.Unmarshal([]byte(tt.in), &l), tt.in)
		assert.Equal(t, tt.want, l.values(), tt.in)
	}
}

func TestPlainTextAndMarkdown(t *testing.T) {
	in := `<p>First &amp; <em>second</em></p><ul><li>one</li><li>two</li></ul><script>alert(1)</script>`
	assert.Equal(t, "First & second\none\ntwo", PlainText(in))

	out := Markdown(`<p>Hello <strong>world</strong></p>`)
	assert.Equal(t, "Hello **world**", out)
}

func TestLicenseFromURI(t *testing.T) {
	assert.Equal(t, "cc-by-4.0", licenseFromURI("https://creativecommons.org/licenses/by/4.0/"))
	assert.Equal(t, "cc0-1.0", licenseFromURI("http://creativecommons.org/publicdomain/zero/1.0/"))
	assert.Equal(t, "mit", licenseFromURI("https://spdx.org/licenses/MIT.html"))
	assert.Equal(t, "", licenseFromURI(""))
}
