package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laithharzallah/Laithstool-sub001/internal/ratelimit"
)

func TestSearchDisabledWithoutKey(t *testing.T) {
	c := New(Config{})
	_, err := c.Search(context.Background(), "Samsung Electronics Co., Ltd.")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestSearchExactMatch(t *testing.T) {
	c := New(Config{APIKey: "test-key"})

	got, err := c.Search(context.Background(), "Samsung Electronics Co., Ltd.")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "exact", got[0].MatchType)
	assert.Equal(t, "00126380", got[0].CorpCode)
	assert.Equal(t, "KR", got[0].Country)
	assert.Equal(t, "DART", got[0].Source)
}

func TestSearchKoreanName(t *testing.T) {
	c := New(Config{APIKey: "test-key"})

	got, err := c.Search(context.Background(), "삼성전자")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "exact", got[0].MatchType)
	assert.Equal(t, "005930", got[0].StockCode)
}

func TestSearchPartialMatchesAfterExact(t *testing.T) {
	c := New(Config{APIKey: "test-key"})

	got, err := c.Search(context.Background(), "hyundai")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, cand := range got {
		assert.Equal(t, "partial", cand.MatchType)
		assert.Contains(t, cand.NameEng, "Hyundai")
	}
	assert.LessOrEqual(t, len(got), 5)
}

func TestSearchCaseInsensitive(t *testing.T) {
	c := New(Config{APIKey: "test-key"})

	upper, err := c.Search(context.Background(), "KAKAO CORP.")
	require.NoError(t, err)
	lower, err := c.Search(context.Background(), "kakao corp.")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestSearchEmptyQuery(t *testing.T) {
	c := New(Config{APIKey: "test-key"})

	got, err := c.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchFallsBackToFullDatabase(t *testing.T) {
	var downloads int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/corpCode.xml", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("crtfc_key"))
		atomic.AddInt32(&downloads, 1)
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<result>
  <list>
    <corp_code>00981273</corp_code>
    <corp_name>두산에너빌리티</corp_name>
    <corp_name_eng>Doosan Enerbility Co., Ltd.</corp_name_eng>
    <stock_code>034020</stock_code>
    <modify_date>20240101</modify_date>
  </list>
</result>`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})

	got, err := c.Search(context.Background(), "doosan")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "00981273", got[0].CorpCode)
	assert.Equal(t, "partial", got[0].MatchType)

	// Second miss on the top table reuses the cached download.
	_, err = c.Search(context.Background(), "doosan enerbility co., ltd.")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&downloads))
}

func TestSearchSurvivesFullDatabaseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})

	got, err := c.Search(context.Background(), "unknown corp")
	require.NoError(t, err, "a failed download degrades to no matches")
	assert.Empty(t, got)
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/company.json", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("crtfc_key"))
		require.Equal(t, "00126380", r.URL.Query().Get("corp_code"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "000",
			"message": "정상",
			"corp_code": "00126380",
			"corp_name": "삼성전자(주)",
			"corp_name_eng": "SAMSUNG ELECTRONICS CO,.LTD",
			"stock_code": "005930",
			"ceo_nm": "한종희",
			"corp_cls": "Y",
			"adres": "경기도 수원시 영통구",
			"hm_url": "www.samsung.com/sec",
			"phn_no": "031-200-1114",
			"induty_code": "264",
			"est_dt": "19690113"
		}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})

	profile, err := c.Lookup(context.Background(), "00126380")
	require.NoError(t, err)
	assert.Equal(t, "삼성전자(주)", profile.Name)
	assert.Equal(t, "한종희", profile.CEOName)
	assert.Equal(t, "www.samsung.com/sec", profile.HomepageURL)
	assert.Equal(t, "19690113", profile.EstablishedDate)
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"013","message":"조회된 데이타가 없습니다."}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})

	_, err := c.Lookup(context.Background(), "99999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"020","message":"API key limit exceeded"}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})

	_, err := c.Lookup(context.Background(), "00126380")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "020")
}

func TestLookupWithoutKey(t *testing.T) {
	c := New(Config{})
	_, err := c.Lookup(context.Background(), "00126380")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestLookupRateLimited(t *testing.T) {
	limiter := ratelimit.NewRegistry(map[string]ratelimit.Limit{
		Provider: {PerSecond: 0.0001, Burst: 1},
	})
	require.True(t, limiter.Allow(Provider), "drain the only token")

	c := New(Config{APIKey: "test-key", Limiter: limiter})
	_, err := c.Lookup(context.Background(), "00126380")
	assert.ErrorIs(t, err, ErrRateLimited)
}
