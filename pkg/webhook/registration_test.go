// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package webhook

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_RegisterRejectsInvalidURL(t *testing.T) {
	require := require.New(t)
	s := NewStore()

	_, err := s.Register("not-a-url", []EventType{EventSettled}, "")
	require.Error(err)

	_, err = s.Register("ftp://example.com/hook", []EventType{EventSettled}, "")
	require.Error(err)
}

func TestStore_RegisterRejectsEmptyEvents(t *testing.T) {
	require := require.New(t)
	s := NewStore()

	_, err := s.Register("https://example.com/hook", nil, "")
	require.Error(err)
}

func TestStore_RegisterRejectsUnknownEvent(t *testing.T) {
	require := require.New(t)
	s := NewStore()

	_, err := s.Register("https://example.com/hook", []EventType{"bogus"}, "")
	require.Error(err)
}

func TestStore_ListForEventFiltersBySubscription(t *testing.T) {
	require := require.New(t)
	s := NewStore()

	settled, err := s.Register("https://example.com/settled", []EventType{EventSettled}, "")
	require.NoError(err)
	_, err = s.Register("https://example.com/expired", []EventType{EventExpired}, "")
	require.NoError(err)

	targets := s.ListForEvent(EventSettled)
	require.Len(targets, 1)
	require.Equal(settled.ID, targets[0].ID)
}

func TestStore_RemoveTombstonesAndClearsSecret(t *testing.T) {
	require := require.New(t)
	s := NewStore()

	reg, err := s.Register("https://example.com/hook", []EventType{EventSettled}, "shh")
	require.NoError(err)
	require.Equal("shh", s.GetSecret(reg.ID))

	ok := s.Remove(reg.ID)
	require.True(ok)
	require.Empty(s.GetSecret(reg.ID))
	require.Empty(s.ListActive())
	require.Empty(s.ListForEvent(EventSettled))

	require.False(s.Remove(reg.ID))
}
