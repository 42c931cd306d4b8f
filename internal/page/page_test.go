package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/curate/internal/record"
)

const landing = `<html><body>
<div class="panel-body">
  Files are currently under embargo
  but will be available on 2027-01-01.
</div>
<div class="alert">Files are currently under embargo but will be available on 2027-01-01.</div>
<table class="files">
  <tr><td><a href="/f/1">README.md</a></td></tr>
  <tr><td><a class="filename" href="/f/2">data.csv</a></td></tr>
</table>
<dl>
  <dt>Awarding University:</dt><dd> EPFL </dd>
</dl>
<h5>Thesis supervisor(s)</h5>
<p><span>Prof. Ada</span>; <span>Dr. Bob</span></p>
</body></html>`

func TestExtract(t *testing.T) {
	f, err := Extract(strings.NewReader(landing))
	require.NoError(t, err)

	assert.Equal(t, []string{"Files are currently under embargo but will be available on 2027-01-01."}, f.Banners)
	assert.ElementsMatch(t, []string{"README.md", "data.csv"}, f.FileNames)
	require.NotNil(t, f.Thesis)
	assert.Equal(t, "EPFL", f.Thesis.University)
	assert.Equal(t, []string{"Prof. Ada", "Dr. Bob"}, f.Thesis.Supervisors)
}

func TestExtract_Empty(t *testing.T) {
	f, err := Extract(strings.NewReader(`<html><body><p>nothing</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, f.Banners)
	assert.Empty(t, f.FileNames)
	assert.Nil(t, f.Thesis)
}

func TestExtract_PlainSupervisors(t *testing.T) {
	f, err := Extract(strings.NewReader(`<h5>Thesis supervisor(s)</h5><div>x</div><p>Prof. Ada; Dr. Bob</p>`))
	require.NoError(t, err)
	require.NotNil(t, f.Thesis)
	assert.Empty(t, f.Thesis.University)
	assert.Equal(t, []string{"Prof. Ada", "Dr. Bob"}, f.Thesis.Supervisors)
}

func TestFetcher_Facts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/records/1" {
			w.Write([]byte(landing))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher("", time.Second)
	facts, err := f.Facts(context.Background(), srv.URL+"/records/1")
	require.NoError(t, err)
	assert.Len(t, facts.FileNames, 2)

	_, err = f.Facts(context.Background(), srv.URL+"/records/2")
	var httpErr *record.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
}
