package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/register-interests/internal/interest"
	"github.com/ginjaninja78/register-interests/internal/types"
)

const interestsHeaderLine = "subject,period,category,title,date,amount,description\n"

func TestKey(t *testing.T) {
	assert.Equal(t, "mp_2015_16_abbott_diane", Key("2015-16", "abbott, diane", ""))
	assert.Equal(t, "mp_rees_mogg_jacob", Key("", "rees-mogg, jacob", ""))
	assert.Equal(t, "mp_2010_12_9f3c01ab", Key("2010-12", "", "9f3c01ab"))
	assert.Equal(t, "mp", Key("", "", ""))
	assert.NotEqual(t, Key("2015-16", "", "9f3c01ab"), Key("2015-16", "", "0d1e2f3a"))
}

func TestStore_SaveLoadClear(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "cache"))

	_, ok, err := store.Load("mp")
	require.NoError(t, err)
	assert.False(t, ok)

	amount := decimal.RequireFromString("1200.50")
	entry := Entry{
		Interests: []types.Interest{
			{Subject: "abbott, diane", Period: "2015-16", CategoryCode: 1, CategoryTitle: "Employment and earnings",
				Date: "3 May 2016", Amount: &amount, Description: "Speech, \"Acme\" Ltd.\nLondon."},
			{Subject: "abbott, diane", Period: "2015-16", CategoryCode: 7, CategoryTitle: "Shareholdings", Description: "Acme Ltd."},
		},
		Diagnostics: []Diagnostic{{
			File: "abbott_diane.htm",
			Diagnostic: interest.Diagnostic{
				Kind: "missing-amount", Subject: "abbott, diane", Period: "2015-16",
				CategoryCode: 1, Text: "Consultant to Acme Ltd.", Message: "Amount missing",
			},
		}},
	}
	require.NoError(t, store.Save("mp", entry))

	loaded, ok, err := store.Load("mp")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded.Interests, 2)
	assert.Equal(t, entry.Interests[0].Description, loaded.Interests[0].Description)
	assert.True(t, amount.Equal(loaded.Interests[0].AmountOrZero()))
	assert.Nil(t, loaded.Interests[1].Amount)
	assert.Equal(t, 7, loaded.Interests[1].CategoryCode)
	assert.Equal(t, entry.Diagnostics, loaded.Diagnostics)

	entries, err := os.ReadDir(store.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, store.Clear("mp"))
	require.NoError(t, store.Clear("mp"))
	_, ok, err = store.Load("mp")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err = os.ReadDir(store.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_SaveEmpty(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Save("mp_2020_21", Entry{}))

	loaded, ok, err := store.Load("mp_2020_21")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, loaded.Interests)
	assert.Empty(t, loaded.Diagnostics)
}

func TestStore_LoadPartialEntry(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "mp.csv"), []byte(interestsHeaderLine), 0644))

	_, ok, err := store.Load("mp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LoadCorrupt(t *testing.T) {
	store := New(t.TempDir())

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "bad.csv"),
		[]byte(interestsHeaderLine+"a,2015-16,x,t,d,,desc\n"), 0644))
	_, _, err := store.Load("bad")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "short.csv"),
		[]byte(interestsHeaderLine+"a,b\n"), 0644))
	_, _, err = store.Load("short")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "empty.csv"), nil, 0644))
	_, _, err = store.Load("empty")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "swapped.csv"),
		[]byte("file,kind,subject,period,category,text,message\n"), 0644))
	_, _, err = store.Load("swapped")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "diag.csv"), []byte(interestsHeaderLine), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "diag.diagnostics.csv"),
		[]byte("file,kind,subject,period,category,text,message\np.htm,missing-amount,a,2015-16,one,t,m\n"), 0644))
	_, _, err = store.Load("diag")
	require.Error(t, err)
}
