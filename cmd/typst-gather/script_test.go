// SPDX-License-Identifier: MPL-2.0

package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/typst-gather/typst-gather/internal/testutil"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"typst-gather": main,
	})
}

// newRegistryServer serves a small package registry: hello:1.0.0 imports
// dep:0.1.0, everything else is missing.
func newRegistryServer(t *testing.T) *httptest.Server {
	t.Helper()
	archives := map[string][]byte{
		"/preview/hello-1.0.0.tar.gz": testutil.TarGz(t, map[string]string{
			"typst.toml": testutil.Manifest("hello", "1.0.0"),
			"lib.typ":    "#import \"@preview/dep:0.1.0\": helper\n#let greet(name) = [Hello #name]\n",
		}),
		"/preview/dep-0.1.0.tar.gz": testutil.TarGz(t, map[string]string{
			"typst.toml": testutil.Manifest("dep", "0.1.0"),
			"lib.typ":    "#let helper = none\n",
		}),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScripts(t *testing.T) {
	srv := newRegistryServer(t)
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
		Setup: func(env *testscript.Env) error {
			env.Setenv("TYPST_GATHER_REGISTRY", srv.URL)
			env.Setenv("NO_COLOR", "1")
			return nil
		},
	})
}
