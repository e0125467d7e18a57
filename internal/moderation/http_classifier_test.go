package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClassifierParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body moderationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hola", body.Input)
		assert.Equal(t, "omni-moderation-latest", body.Model)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"modr-1","results":[{"flagged":true,"categories":{"violence":true,"hate":false,"harassment":true}}]}`))
	}))
	defer srv.Close()

	hc := NewHTTPClassifier(srv.URL, "sk-test", "omni-moderation-latest", time.Second)
	v, err := hc.Classify(context.Background(), "hola")
	require.NoError(t, err)
	assert.True(t, v.Flagged)
	assert.Equal(t, []string{"harassment", "violence"}, v.Categories)
}

func TestHTTPClassifierErrors(t *testing.T) {
	status := http.StatusInternalServerError
	payload := `{}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	hc := NewHTTPClassifier(srv.URL, "sk-test", "", time.Second)

	_, err := hc.Classify(context.Background(), "hola")
	assert.Error(t, err, "5xx must be an error")

	status = http.StatusOK
	payload = `{"results":[]}`
	_, err = hc.Classify(context.Background(), "hola")
	assert.Error(t, err, "empty results must be an error")

	payload = `not json`
	_, err = hc.Classify(context.Background(), "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse classifier resp JSON")
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, errors.Cause(err), &syntaxErr)
	assert.Contains(t, fmt.Sprintf("%+v", err), "http_classifier.go", "wrapped errors carry a stack")
}

func TestHTTPClassifierTimeoutBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e := NewEngine(DefaultRules(), NewHTTPClassifier(srv.URL, "sk-test", "", 50*time.Millisecond))
	d := e.Classify(context.Background(), KindPost, cleanText)
	assert.Equal(t, ReasonModerationError, d.Reason)
	assert.True(t, d.Hard())
}

func TestRulesLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"denylist":["gil"],"allowlist":["gilada"],"documents":["licencia"]}`), 0o644))

	rules := DefaultRules()
	require.NoError(t, rules.LoadFile(p))
	assert.Contains(t, rules.Denylist, "gil")
	assert.Contains(t, rules.DocumentKeywords, "licencia")
	assert.Contains(t, rules.Allowlist, "gilada")

	e := NewEngine(rules, PassthroughClassifier{})
	d := e.Classify(context.Background(), KindPost, "Mi hermano es un gil y todos en casa lo saben hace rato")
	assert.Equal(t, ReasonDenylist, d.Reason)
	d = e.Classify(context.Background(), KindPost, "Que gilada lo que paso ayer en la oficina con el jefe nuevo")
	assert.Equal(t, ReasonOK, d.Reason)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"denylits":["x"]}`), 0o644))
	assert.Error(t, rules.LoadFile(bad))
}
