package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRow_StateVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  RawDispatchRow
		want string
	}{
		{"stateName wins", RawDispatchRow{StateName: "Punjab", State: "Haryana", StateUpper: "Delhi"}, "Punjab"},
		{"falls back to state", RawDispatchRow{State: "Haryana", StateUpper: "Delhi"}, "Haryana"},
		{"falls back to STATE", RawDispatchRow{StateUpper: "Delhi"}, "Delhi"},
		{"whitespace-only treated as absent", RawDispatchRow{StateName: "  ", State: "Haryana"}, "Haryana"},
		{"all absent", RawDispatchRow{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRow(tt.raw).StateName)
		})
	}
}

func TestNormalizeRow_TrimsEveryField(t *testing.T) {
	row := NormalizeRow(RawDispatchRow{
		InDate:      " 2025-01-05 ",
		PartyName:   "  Acme Traders ",
		SalesPerson: "Ravi \n",
		ItemName:    "\tCement",
	})
	assert.Equal(t, "2025-01-05", row.InDate)
	assert.Equal(t, "Acme Traders", row.PartyName)
	assert.Equal(t, "Ravi", row.SalesPerson)
	assert.Equal(t, "Cement", row.ItemName)
}

func TestParseRowTime_Layouts(t *testing.T) {
	for _, value := range []string{
		"2025-01-05T09:30:00Z",
		"2025-01-05T09:30:00",
		"2025-01-05 09:30:00",
		"2025-01-05",
		"05/01/2025",
	} {
		parsed, ok := ParseRowTime(value)
		require.True(t, ok, "value=%q", value)
		assert.Equal(t, 2025, parsed.Year())
		assert.Equal(t, time.January, parsed.Month())
		assert.Equal(t, 5, parsed.Day())
	}

	_, ok := ParseRowTime("")
	assert.False(t, ok)
	_, ok = ParseRowTime("not-a-date")
	assert.False(t, ok)
	_, ok = ParseRowTime("05-01-2025")
	assert.False(t, ok)
}

func TestResolveDate_SourcePriority(t *testing.T) {
	// out-date 优先于 in-date 和 gate-out time
	row := DispatchRow{OutDate: "2025-02-01", InDate: "2025-01-01", GateOutTime: "2025-03-01"}
	d, ok := row.ResolveDate()
	require.True(t, ok)
	assert.Equal(t, time.February, d.Month())

	row = DispatchRow{InDate: "2025-01-01", GateOutTime: "2025-03-01"}
	d, ok = row.ResolveDate()
	require.True(t, ok)
	assert.Equal(t, time.January, d.Month())

	row = DispatchRow{GateOutTime: "2025-03-01"}
	d, ok = row.ResolveDate()
	require.True(t, ok)
	assert.Equal(t, time.March, d.Month())
}

func TestResolveDate_FirstNonEmptyWinsEvenIfUnparseable(t *testing.T) {
	// out-date 非空但无法解析：不回退到 in-date
	row := DispatchRow{OutDate: "garbage", InDate: "2025-01-01"}
	_, ok := row.ResolveDate()
	assert.False(t, ok)

	_, ok = DispatchRow{}.ResolveDate()
	assert.False(t, ok)
}

func TestDeriveVocabulary(t *testing.T) {
	rows := []DispatchRow{
		{PartyName: "Zenith", ItemName: "Steel", SalesPerson: "Ravi", StateName: "Punjab"},
		{PartyName: "Acme", ItemName: "Steel", SalesPerson: "Meera", StateName: "Punjab"},
		{PartyName: "Acme", ItemName: "Cement", SalesPerson: "", StateName: ""},
	}
	vocab := DeriveVocabulary(rows)
	assert.Equal(t, []string{"Acme", "Zenith"}, vocab.Parties)
	assert.Equal(t, []string{"Cement", "Steel"}, vocab.Items)
	assert.Equal(t, []string{"Meera", "Ravi"}, vocab.SalesPersons)
	assert.Equal(t, []string{"Punjab"}, vocab.States)
}

func TestDefaultSelection(t *testing.T) {
	sel := DefaultSelection()
	assert.Equal(t, AllParties, sel.Party)
	assert.Equal(t, AllItems, sel.Item)
	assert.Equal(t, AllSalesPersons, sel.SalesPerson)
	assert.Equal(t, AllStates, sel.State)
	assert.Nil(t, sel.FromDate)
	assert.Nil(t, sel.ToDate)
}
