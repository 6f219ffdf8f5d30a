package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"datalake/internal/model"
)

func fptr(v float64) *float64 { return &v }

func song(id, title, artistID, artistName string, year int, dur float64) model.SongRecord {
	return model.SongRecord{
		SongID:     id,
		Title:      title,
		ArtistID:   artistID,
		ArtistName: artistName,
		Year:       year,
		Duration:   dur,
	}
}

func play(user string, session int64, ts int64, artist, title string) model.EventRecord {
	return model.EventRecord{
		Page:      model.NextSongPage,
		UserID:    model.FlexString(user),
		FirstName: "F" + user,
		LastName:  "L" + user,
		Gender:    "F",
		Level:     "free",
		TS:        ts,
		Artist:    artist,
		Song:      title,
		SessionID: session,
		Location:  "Somewhere",
		UserAgent: "agent",
	}
}

func collect(errs *[]*model.RecordError) model.Reporter {
	return func(e *model.RecordError) { *errs = append(*errs, e) }
}

func TestDeriveSongsTable_SingleRecord(t *testing.T) {
	got := DeriveSongsTable([]model.SongRecord{song("S1", "T", "A1", "", 2000, 180.5)}, nil)
	require.Equal(t, []model.Song{{SongID: "S1", Title: "T", ArtistID: "A1", Year: 2000, Duration: 180.5}}, got)
}

func TestDeriveSongsTable_DedupFirstWinsAndSorted(t *testing.T) {
	in := []model.SongRecord{
		song("S3", "third", "A1", "", 2001, 1),
		song("S1", "first", "A1", "", 2001, 1),
		song("S3", "third-dup", "A2", "", 1999, 2),
		song("S2", "second", "A2", "", 0, 3),
	}
	got := DeriveSongsTable(in, nil)
	require.Len(t, got, 3)
	require.Equal(t, []string{"S1", "S2", "S3"}, []string{got[0].SongID, got[1].SongID, got[2].SongID})
	require.Equal(t, "third", got[2].Title, "first occurrence must win")
}

func TestDeriveSongsTable_SkipsMissingSongID(t *testing.T) {
	var errs []*model.RecordError
	got := DeriveSongsTable([]model.SongRecord{
		song("", "no id", "A1", "", 2000, 1),
		song("S1", "ok", "A1", "", 2000, 1),
	}, collect(&errs))
	require.Len(t, got, 1)
	require.Len(t, errs, 1)
	require.Equal(t, 0, errs[0].Index)
	require.Equal(t, model.SongsTableName, errs[0].Stage)
}

func TestDeriveArtistsTable_ProjectionAndDedup(t *testing.T) {
	a1 := song("S1", "t", "A2", "Bob", 2000, 1)
	a1.ArtistLocation = "Austin"
	a1.ArtistLatitude = fptr(30.2)
	a1.ArtistLongitude = fptr(-97.7)
	a2 := song("S2", "t", "A1", "Ann", 2000, 1)
	a3 := song("S3", "t", "A2", "Bobby", 2000, 1)

	got := DeriveArtistsTable([]model.SongRecord{a1, a2, a3}, nil)
	require.Len(t, got, 2)
	require.Equal(t, "A1", got[0].ArtistID)
	require.Nil(t, got[0].Latitude)
	require.Equal(t, model.Artist{
		ArtistID:  "A2",
		Name:      "Bob",
		Location:  "Austin",
		Latitude:  fptr(30.2),
		Longitude: fptr(-97.7),
	}, got[1])
}

func TestDeriveCatalog_EmptyInput(t *testing.T) {
	require.Empty(t, DeriveSongsTable(nil, nil))
	require.NotNil(t, DeriveSongsTable(nil, nil))
	require.Empty(t, DeriveArtistsTable([]model.SongRecord{}, nil))
}

func TestDeriveCatalog_Deterministic(t *testing.T) {
	in := []model.SongRecord{
		song("S9", "x", "A9", "Nine", 1990, 9),
		song("S1", "y", "A1", "One", 1991, 1),
		song("S9", "z", "A1", "One", 1992, 2),
		song("S5", "w", "A5", "Five", 1993, 5),
	}
	require.Equal(t, DeriveSongsTable(in, nil), DeriveSongsTable(in, nil))
	require.Equal(t, DeriveArtistsTable(in, nil), DeriveArtistsTable(in, nil))
	require.Equal(t, model.SongsTable(DeriveSongsTable(in, nil)).Rows, model.SongsTable(DeriveSongsTable(in, nil)).Rows)
}

func TestFilterPlays(t *testing.T) {
	home := play("1", 1, 1542242826796, "A", "s")
	home.Page = "Home"
	got := FilterPlays([]model.EventRecord{home, play("2", 1, 1542242826796, "A", "s")})
	require.Len(t, got, 1)
	require.Equal(t, "2", got[0].UserID.String())
}

func TestDeriveUsersTable_LastLevelWins(t *testing.T) {
	e1 := play("7", 1, 1, "", "")
	e2 := play("3", 1, 1, "", "")
	e3 := play("7", 2, 1, "", "")
	e3.Level = "paid"
	var errs []*model.RecordError
	anon := play("", 3, 1, "", "")

	got := DeriveUsersTable([]model.EventRecord{e1, e2, anon, e3}, collect(&errs))
	require.Len(t, got, 2)
	require.Equal(t, "3", got[0].UserID)
	require.Equal(t, "7", got[1].UserID)
	require.Equal(t, "paid", got[1].Level)
	require.Len(t, errs, 1)
}

func TestDeriveTimestamp(t *testing.T) {
	ts, err := DeriveTimestamp(1542242826796, nil)
	require.NoError(t, err)
	require.Equal(t, "2018-11-15 00:47:06", ts.Datetime)
	require.Equal(t, ts.Instant.Format(DatetimeLayout), ts.Datetime)
	require.Equal(t, int64(1542242826796), ts.Instant.UnixMilli())

	est := time.FixedZone("EST", -5*3600)
	local, err := DeriveTimestamp(1542242826796, est)
	require.NoError(t, err)
	require.Equal(t, "2018-11-14 19:47:06", local.Datetime)
	require.True(t, local.Instant.Equal(ts.Instant))

	_, err = DeriveTimestamp(0, nil)
	require.Error(t, err)
	_, err = DeriveTimestamp(-5, nil)
	require.Error(t, err)
}

func TestStampEvents_DropsMalformed(t *testing.T) {
	var errs []*model.RecordError
	got := StampEvents([]model.EventRecord{
		play("1", 1, -1, "A", "s"),
		play("2", 1, 1542242826796, "A", "s"),
	}, time.UTC, collect(&errs))
	require.Len(t, got, 1)
	require.Equal(t, "2", got[0].UserID.String())
	require.Len(t, errs, 1)
	require.Equal(t, "timestamp", errs[0].Stage)
}

func TestTimeRowOf(t *testing.T) {
	ts, err := DeriveTimestamp(1542242826796, time.UTC)
	require.NoError(t, err)
	require.Equal(t, model.TimeRow{
		StartTime: "2018-11-15 00:47:06",
		Hour:      0,
		Day:       15,
		Week:      46,
		Month:     11,
		Year:      2018,
		Weekday:   4,
	}, TimeRowOf(ts))

	sunday, err := DeriveTimestamp(time.Date(2018, 11, 18, 12, 0, 0, 0, time.UTC).UnixMilli(), time.UTC)
	require.NoError(t, err)
	require.Equal(t, 7, TimeRowOf(sunday).Weekday)
}

func TestDeriveTimeTable_SameInstantOneRow(t *testing.T) {
	evs := StampEvents([]model.EventRecord{
		play("1", 1, 1542242826796, "A", "s"),
		play("2", 1, 1542242826796, "B", "s"),
		play("3", 1, 1541105830796, "B", "s"),
	}, time.UTC, nil)
	got := DeriveTimeTable(evs)
	require.Len(t, got, 2)
	require.Equal(t, "2018-11-01 20:57:10", got[0].StartTime)
	require.Equal(t, "2018-11-15 00:47:06", got[1].StartTime)
}

func TestDeriveSongplaysTable_JoinAndNumbering(t *testing.T) {
	artists := []model.Artist{
		{ArtistID: "AR1", Name: "Muse"},
		{ArtistID: "AR2", Name: "Blur"},
	}
	songs := []model.Song{{SongID: "SO1", Title: "Uprising", ArtistID: "AR1"}}

	evs := StampEvents([]model.EventRecord{
		play("9", 5, 1542242826796, "Muse", "Uprising"),
		play("2", 8, 1542242826796, "Blur", "Song 2"),
		play("9", 1, 1542242826796, "Unknown Artist", "x"),
		play("2", 3, 1541105830796, "Muse", "Hysteria"),
		play("2", 8, 1541105830796, "Muse", "Uprising"),
		play("2", 3, 1543537327796, "muse", "Uprising"),
	}, time.UTC, nil)

	got, stats := DeriveSongplaysTable(evs, artists, songs)
	require.Len(t, got, 4)
	require.Equal(t, JoinStats{Matched: 4, Unmatched: 2, SongsResolved: 2}, stats)

	for i, p := range got {
		require.Equal(t, int64(i+1), p.SongplayID)
		require.NotEmpty(t, p.ArtistID)
	}
	// (user_id, session_id) order; ties keep input order.
	require.Equal(t, "2", got[0].UserID)
	require.Equal(t, int64(3), got[0].SessionID)
	require.Equal(t, "AR2", got[1].ArtistID)
	require.Equal(t, int64(8), got[1].SessionID)
	require.Equal(t, "SO1", got[2].SongID)
	require.Equal(t, int64(8), got[2].SessionID)
	require.Equal(t, "9", got[3].UserID)
	require.Equal(t, "SO1", got[3].SongID)
	require.Equal(t, time.UnixMilli(1542242826796).UTC(), got[3].StartTime)
}

func TestDeriveSongplaysTable_UnknownArtistExcluded(t *testing.T) {
	artists := []model.Artist{{ArtistID: "AR1", Name: "Muse"}}
	base := []model.EventRecord{
		play("1", 1, 1542242826796, "Muse", "a"),
		play("1", 2, 1542242826796, "Muse", "b"),
	}
	withUnknown := append(append([]model.EventRecord{}, base...), play("1", 3, 1542242826796, "Unknown Artist", "c"))

	a, _ := DeriveSongplaysTable(StampEvents(base, time.UTC, nil), artists, nil)
	b, stats := DeriveSongplaysTable(StampEvents(withUnknown, time.UTC, nil), artists, nil)
	require.Equal(t, len(a), len(b))
	require.Equal(t, 1, stats.Unmatched)
	require.Len(t, withUnknown, len(b)+1)
}

func TestDeriveSongplaysTable_NoMatchesIsEmpty(t *testing.T) {
	evs := StampEvents([]model.EventRecord{play("1", 1, 1542242826796, "Nobody", "x")}, time.UTC, nil)
	got, _ := DeriveSongplaysTable(evs, nil, nil)
	require.Empty(t, got)
}

func TestIndexArtists_DuplicateNameSmallestIDWins(t *testing.T) {
	idx := IndexArtists([]model.Artist{
		{ArtistID: "AR1", Name: "Same"},
		{ArtistID: "AR0", Name: "Same"},
	})
	require.Equal(t, "AR0", idx["Same"].ArtistID)
}

func TestDeDup_Policies(t *testing.T) {
	type kv struct{ k, v string }
	in := []kv{{"a", "1"}, {"b", "2"}, {"a", "3"}}
	key := func(r kv) string { return r.k }

	require.Equal(t, []kv{{"a", "1"}, {"b", "2"}}, DeDup(in, key, KeepFirst))
	require.Equal(t, []kv{{"b", "2"}, {"a", "3"}}, DeDup(in, key, KeepLast))
	require.Empty(t, DeDup([]kv{}, key, KeepLast))
}
