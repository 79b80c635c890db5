// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atmx/settlement-oracle/pkg/log"
	"github.com/stretchr/testify/require"
)

func fastDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Timeout:      2 * time.Second,
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestDispatcher_DeliversAndSignsBody(t *testing.T) {
	require := require.New(t)

	var gotSig, gotEventHeader string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(headerSignature)
		gotEventHeader = r.Header.Get(headerEvent)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewStore()
	_, err := store.Register(srv.URL, []EventType{EventSettled}, "topsecret")
	require.NoError(err)

	d := NewDispatcher(store, fastDispatcherConfig(), nil, log.NoOp())
	event := Event{EventType: EventSettled, ContractID: "c1", Outcome: "YES"}
	succeeded := d.Dispatch(t.Context(), event)

	require.Equal(1, succeeded)
	require.Equal(string(EventSettled), gotEventHeader)

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(gotBody)
	require.Equal("sha256="+hex.EncodeToString(mac.Sum(nil)), gotSig)

	var decoded Event
	require.NoError(json.Unmarshal(gotBody, &decoded))
	require.Equal("c1", decoded.ContractID)
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	require := require.New(t)

	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewStore()
	_, err := store.Register(srv.URL, []EventType{EventSettled}, "")
	require.NoError(err)

	d := NewDispatcher(store, fastDispatcherConfig(), nil, log.NoOp())
	succeeded := d.Dispatch(t.Context(), Event{EventType: EventSettled})

	require.Equal(1, succeeded)
	require.EqualValues(4, atomic.LoadInt32(&attempts))
}

func TestDispatcher_NonRetryable4xxStopsImmediately(t *testing.T) {
	require := require.New(t)

	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	store := NewStore()
	_, err := store.Register(srv.URL, []EventType{EventSettled}, "")
	require.NoError(err)

	d := NewDispatcher(store, fastDispatcherConfig(), nil, log.NoOp())
	succeeded := d.Dispatch(t.Context(), Event{EventType: EventSettled})

	require.Equal(0, succeeded)
	require.EqualValues(1, atomic.LoadInt32(&attempts))
}

func TestDispatcher_ExhaustsRetriesAndFails(t *testing.T) {
	require := require.New(t)

	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewStore()
	_, err := store.Register(srv.URL, []EventType{EventSettled}, "")
	require.NoError(err)

	d := NewDispatcher(store, fastDispatcherConfig(), nil, log.NoOp())
	succeeded := d.Dispatch(t.Context(), Event{EventType: EventSettled})

	require.Equal(0, succeeded)
	require.EqualValues(4, atomic.LoadInt32(&attempts))
}

func TestDispatcher_NoSubscribersIsANoop(t *testing.T) {
	require := require.New(t)

	store := NewStore()
	d := NewDispatcher(store, fastDispatcherConfig(), nil, log.NoOp())
	succeeded := d.Dispatch(t.Context(), Event{EventType: EventSettled})
	require.Equal(0, succeeded)
}

func TestDispatcher_FansOutConcurrentlyToMultipleTargets(t *testing.T) {
	require := require.New(t)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewStore()
	_, err := store.Register(srv.URL+"/a", []EventType{EventSettled}, "")
	require.NoError(err)
	_, err = store.Register(srv.URL+"/b", []EventType{EventSettled}, "")
	require.NoError(err)
	_, err = store.Register(srv.URL+"/c", []EventType{EventDisputed}, "")
	require.NoError(err)

	d := NewDispatcher(store, fastDispatcherConfig(), nil, log.NoOp())
	succeeded := d.Dispatch(t.Context(), Event{EventType: EventSettled})

	require.Equal(2, succeeded)
	require.EqualValues(2, atomic.LoadInt32(&hits))
}
