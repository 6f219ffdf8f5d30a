package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlexString_Unmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want FlexString
	}{
		{`"39"`, "39"},
		{`""`, ""},
		{`39`, "39"},
		{`null`, ""},
		{`1.5`, "1.5"},
	}
	for _, tc := range cases {
		var f FlexString
		require.NoError(t, json.Unmarshal([]byte(tc.in), &f), tc.in)
		require.Equal(t, tc.want, f, tc.in)
	}

	var f FlexString
	require.Error(t, json.Unmarshal([]byte(`true`), &f))
}

func TestEventRecord_Decode(t *testing.T) {
	var e EventRecord
	require.NoError(t, json.Unmarshal([]byte(`{"page":"NextSong","userId":26,"ts":1542242826796,"sessionId":583,"length":null,"artist":null}`), &e))
	require.True(t, e.IsPlay())
	require.Equal(t, "26", e.UserID.String())
	require.Equal(t, int64(583), e.SessionID)
	require.Nil(t, e.Length)
	require.Empty(t, e.Artist)
}

func TestTables_ColumnsAlignWithRows(t *testing.T) {
	lat := 1.0
	tables := []*Table{
		SongsTable([]Song{{SongID: "S1", Year: 2000}}),
		ArtistsTable([]Artist{{ArtistID: "A1", Latitude: &lat}}),
		UsersTable([]User{{UserID: "1"}}),
		TimeTable([]TimeRow{{StartTime: "2018-11-15 00:47:06"}}),
		SongplaysTable([]Songplay{{SongplayID: 1, StartTime: time.Date(2018, 11, 15, 0, 0, 0, 0, time.UTC)}}),
	}
	for i, tbl := range tables {
		require.Equal(t, TableNames[i], tbl.Name)
		require.Len(t, tbl.Rows, 1)
		require.Len(t, tbl.Rows[0], len(tbl.Columns), tbl.Name)
		for _, p := range tbl.PartitionBy {
			require.GreaterOrEqual(t, tbl.ColumnIndex(p), 0, "%s partition %s", tbl.Name, p)
		}
	}
}

func TestArtistsTable_NullCoordinates(t *testing.T) {
	tbl := ArtistsTable([]Artist{{ArtistID: "A1"}})
	require.Nil(t, tbl.Rows[0][tbl.ColumnIndex("latitude")])
	require.Nil(t, tbl.Rows[0][tbl.ColumnIndex("longitude")])
}

func TestSongplaysTable_PartitionColumns(t *testing.T) {
	tbl := SongplaysTable([]Songplay{{SongplayID: 1, StartTime: time.Date(2018, 11, 30, 23, 59, 0, 0, time.UTC)}})
	require.Equal(t, []string{"year", "month"}, tbl.PartitionBy)
	require.Equal(t, int64(2018), tbl.Rows[0][tbl.ColumnIndex("year")])
	require.Equal(t, int64(11), tbl.Rows[0][tbl.ColumnIndex("month")])
	require.Equal(t, -1, tbl.ColumnIndex("missing"))
}

func TestRecordError(t *testing.T) {
	base := errors.New("bad")
	e := &RecordError{Stage: "decode", Key: "a.json", Index: 3, Err: base}
	require.Equal(t, "decode: a.json record 3: bad", e.Error())
	require.ErrorIs(t, e, base)
	require.Equal(t, "songs_table: record 0: bad", (&RecordError{Stage: "songs_table", Index: 0, Err: base}).Error())
	require.Equal(t, "timestamp: bad", (&RecordError{Stage: "timestamp", Index: -1, Err: base}).Error())

	var nilReporter Reporter
	nilReporter.Report(e)
}
