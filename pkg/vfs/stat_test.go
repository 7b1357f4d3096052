package vfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStatBackfillsMissingTimestamps(t *testing.T) {
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	st := NewStat(Stat{Kind: KindFile, Size: 10, MTime: mtime})

	assert.Equal(t, mtime, st.MTime)
	assert.Equal(t, mtime, st.ATime, "atime backfills from mtime")
	assert.Equal(t, mtime, st.CTime, "ctime backfills from mtime")
	assert.Equal(t, mtime, st.BirthTime, "birth time backfills from mtime")
}

func TestNewStatPrefersOwnValues(t *testing.T) {
	atime := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	mtime := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	st := NewStat(Stat{ATime: atime, MTime: mtime})

	assert.Equal(t, atime, st.ATime)
	assert.Equal(t, mtime, st.MTime)
}

func TestNewStatAllZeroStaysZero(t *testing.T) {
	st := NewStat(Stat{Kind: KindDirectory})

	assert.True(t, st.ATime.IsZero())
	assert.True(t, st.MTime.IsZero())
	assert.True(t, st.CTime.IsZero())
	assert.True(t, st.BirthTime.IsZero())
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindFile, ParseKind("regular file"))
	assert.Equal(t, KindDirectory, ParseKind("directory"))
	assert.Equal(t, KindUnknown, ParseKind("socket"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "directory", KindDirectory.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
