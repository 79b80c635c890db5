// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atmx/settlement-oracle/pkg/log"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "station,valid,p01m,sknt,tmpf,snowd,metar\n" +
	"KJFK,2026-01-01 00:00,0.00,12.0,45.0,0.0,METAR1\n" +
	"KJFK,2026-01-01 01:00,M,T,46.0,M,METAR2\n"

func TestASOSClient_FetchParsesCSVAndKeepsRawSentinels(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleCSV)
	}))
	defer srv.Close()

	c := NewASOSClient(srv.URL, 5*time.Second, log.NoOp())
	rows, err := c.fetch(t.Context(), "KJFK", time.Now().Add(-time.Hour), time.Now())
	require.NoError(err)
	require.Len(rows, 2)
	require.Equal("0.00", rows[0].p01m)
	require.Equal("M", rows[1].p01m)
}

func TestASOSClient_FetchPropagatesUpstreamError(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "")
	}))
	defer srv.Close()

	c := NewASOSClient(srv.URL, 5*time.Second, log.NoOp())
	_, err := c.fetch(t.Context(), "KJFK", time.Now().Add(-time.Hour), time.Now())
	require.Error(err)
}

func TestSafeFloat_HandlesMissingSentinels(t *testing.T) {
	require := require.New(t)

	require.Nil(safeFloat(""))
	require.Nil(safeFloat("M"))
	require.Nil(safeFloat("T"))
	require.Nil(safeFloat("not-a-number"))

	v := safeFloat("12.5")
	require.NotNil(v)
	require.InDelta(12.5, *v, 0.0001)
}
