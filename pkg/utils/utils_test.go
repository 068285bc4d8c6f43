package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPagination(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
		page   int
	}{
		{"", 10, 0, 1},
		{"?page=3&limit=20", 20, 40, 3},
		{"?limit=500", 100, 0, 1},
		{"?page=-2&limit=abc", 10, 0, 1},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		p := GetPagination(r)
		assert.Equal(t, tt.limit, p.Limit, tt.query)
		assert.Equal(t, tt.offset, p.Offset, tt.query)
		assert.Equal(t, tt.page, p.Page, tt.query)
	}

	meta := Pagination{Limit: 10, Page: 1}.Meta(21)
	assert.Equal(t, 3, meta["total_pages"])
}

func TestDecodeJSONBody(t *testing.T) {
	var dst struct {
		Amount string `json:"amount"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"200"}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	status, err := DecodeJSONBody(httptest.NewRecorder(), r, &dst)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200", dst.Amount)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"200","extra":1}`))
	r.Header.Set("Content-Type", "application/json")
	status, err = DecodeJSONBody(httptest.NewRecorder(), r, &dst)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`amount=200`))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	status, _ = DecodeJSONBody(httptest.NewRecorder(), r, &dst)
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
}

func TestBuildErrorResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	BuildErrorResponse(rr, http.StatusBadRequest, "Insufficient balance", map[string]string{"amount": "too large"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Insufficient balance", body.Message)
}
