package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"datalake/internal/model"
	"datalake/internal/sink"
)

func songRec(id, title, artistID, name string) model.SongRecord {
	return model.SongRecord{SongID: id, Title: title, ArtistID: artistID, ArtistName: name, Year: 2000, Duration: 180.5}
}

func event(page, user string, session, ts int64, artist, song string) model.EventRecord {
	return model.EventRecord{
		Page:      page,
		UserID:    model.FlexString(user),
		FirstName: "F",
		LastName:  "L",
		Level:     "free",
		TS:        ts,
		SessionID: session,
		Artist:    artist,
		Song:      song,
	}
}

type failingSource[T any] struct{ err error }

func (f failingSource[T]) Read(context.Context, model.Reporter) ([]T, error) { return nil, f.err }

type failingSink struct {
	*sink.Memory
	table string
}

func (f *failingSink) Write(ctx context.Context, t *model.Table) error {
	if t.Name == f.table {
		return errors.New("disk full")
	}
	return f.Memory.Write(ctx, t)
}

type stagingSink struct {
	*sink.Memory
	committed, aborted int
	commitErr          error
}

func (s *stagingSink) Commit(context.Context) error {
	s.committed++
	return s.commitErr
}

func (s *stagingSink) Abort(context.Context) error {
	s.aborted++
	return nil
}

func table(t *testing.T, m *sink.Memory, name string) *model.Table {
	t.Helper()
	tbl, ok := m.Table(name)
	require.True(t, ok, "table %s not written", name)
	return tbl
}

func TestRunCatalogPipeline_SingleSong(t *testing.T) {
	m := sink.NewMemory()
	cat, err := RunCatalogPipeline(context.Background(), SliceSource[model.SongRecord]{
		{SongID: "S1", Title: "T", ArtistID: "A1", Year: 2000, Duration: 180.5},
	}, m, Options{})
	require.NoError(t, err)
	require.Equal(t, []model.Song{{SongID: "S1", Title: "T", ArtistID: "A1", Year: 2000, Duration: 180.5}}, cat.Songs)
	require.Equal(t, [][]any{{"S1", "T", "A1", int64(2000), 180.5}}, table(t, m, model.SongsTableName).Rows)
}

func TestRunCatalogPipeline_EmptyInput(t *testing.T) {
	m := sink.NewMemory()
	cat, err := RunCatalogPipeline(context.Background(), SliceSource[model.SongRecord]{}, m, Options{})
	require.NoError(t, err)
	require.Empty(t, cat.Songs)
	require.Empty(t, cat.Artists)
	require.Equal(t, 0, table(t, m, model.SongsTableName).Len())
	require.Equal(t, 0, table(t, m, model.ArtistsTableName).Len())
}

func TestRunCatalogPipeline_SourceError(t *testing.T) {
	boom := errors.New("no such bucket")
	m := sink.NewMemory()
	_, err := RunCatalogPipeline(context.Background(), failingSource[model.SongRecord]{err: boom}, m, Options{})

	var se *SourceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, SongDataInput, se.Input)
	require.ErrorIs(t, err, boom)
	require.Empty(t, m.Names())
}

func TestRunEventPipeline_SameInstantOneTimeRow(t *testing.T) {
	m := sink.NewMemory()
	err := RunEventPipeline(context.Background(), SliceSource[model.EventRecord]{
		event("NextSong", "1", 1, 1542242826796, "A", "s"),
		event("NextSong", "2", 1, 1542242826796, "B", "s"),
	}, m, nil, Options{})
	require.NoError(t, err)
	times := table(t, m, model.TimeTableName)
	require.Equal(t, 1, times.Len())
	require.Equal(t, "2018-11-15 00:47:06", times.Rows[0][0])
	require.Equal(t, 0, table(t, m, model.SongplaysTableName).Len())
}

func TestRunEventPipeline_UnknownArtistExcluded(t *testing.T) {
	ctx := context.Background()
	cat, err := DeriveCatalog(ctx, SliceSource[model.SongRecord]{songRec("S1", "Uprising", "AR1", "Muse")}, Options{})
	require.NoError(t, err)

	base := SliceSource[model.EventRecord]{
		event("NextSong", "1", 1, 1542242826796, "Muse", "Uprising"),
		event("NextSong", "1", 2, 1542242826796, "Muse", "Other"),
	}
	withUnknown := append(append(SliceSource[model.EventRecord]{}, base...),
		event("NextSong", "1", 3, 1542242826796, "Unknown Artist", "x"))

	a, b := sink.NewMemory(), sink.NewMemory()
	require.NoError(t, RunEventPipeline(ctx, base, a, cat, Options{}))
	require.NoError(t, RunEventPipeline(ctx, withUnknown, b, cat, Options{}))
	require.Equal(t, table(t, a, model.SongplaysTableName).Len(), table(t, b, model.SongplaysTableName).Len())

	rows := table(t, b, model.SongplaysTableName).Rows
	require.Equal(t, int64(1), rows[0][0])
	require.Equal(t, "S1", rows[0][4])
	require.Equal(t, "", rows[1][4], "unresolved song_id stays empty")
}

func TestRunEventPipeline_FiltersAndSkipsBadRecords(t *testing.T) {
	m := sink.NewMemory()
	err := RunEventPipeline(context.Background(), SliceSource[model.EventRecord]{
		event("Home", "1", 1, 1542242826796, "A", "s"),
		event("NextSong", "", 1, 1542242826796, "A", "s"),
		event("NextSong", "2", 1, -1, "A", "s"),
		event("NextSong", "3", 1, 1541105830796, "A", "s"),
	}, m, nil, Options{})
	require.NoError(t, err)

	users := table(t, m, model.UsersTableName)
	require.Equal(t, [][]any{{"2", "F", "L", "", "free"}, {"3", "F", "L", "", "free"}}, users.Rows)
	require.Equal(t, 2, table(t, m, model.TimeTableName).Len())
}

func TestRunEventPipeline_TimezoneOption(t *testing.T) {
	m := sink.NewMemory()
	est := time.FixedZone("EST", -5*3600)
	require.NoError(t, RunEventPipeline(context.Background(), SliceSource[model.EventRecord]{
		event("NextSong", "1", 1, 1542242826796, "A", "s"),
	}, m, nil, Options{Location: est}))
	require.Equal(t, "2018-11-14 19:47:06", table(t, m, model.TimeTableName).Rows[0][0])
}

func TestRun_AllTablesAndCommit(t *testing.T) {
	s := &stagingSink{Memory: sink.NewMemory()}
	sum, err := Run(context.Background(),
		SliceSource[model.SongRecord]{songRec("S1", "Uprising", "AR1", "Muse"), {Title: "no id"}},
		SliceSource[model.EventRecord]{
			event("NextSong", "7", 3, 1542242826796, "Muse", "Uprising"),
			event("NextSong", "7", 1, 1542242826796, "Blur", "Song 2"),
			event("Logout", "7", 1, 1542242826796, "", ""),
		},
		s, Options{Job: "test"})
	require.NoError(t, err)
	require.Equal(t, model.TableNames, s.Names())
	require.Equal(t, 1, s.committed)
	require.Equal(t, 0, s.aborted)

	require.Equal(t, map[string]int{SongDataInput: 2, LogDataInput: 3}, sum.Read)
	require.Equal(t, 1, sum.Filtered)
	require.Equal(t, 1, sum.Unmatched)
	require.Equal(t, 2, sum.RecordErrors, "missing song_id and artist_id for the same record")
	require.Equal(t, 1, sum.Tables[model.SongplaysTableName])
}

func TestRun_SinkErrorAborts(t *testing.T) {
	inner := &failingSink{Memory: sink.NewMemory(), table: model.TimeTableName}
	st := &stagingSink{Memory: sink.NewMemory()}
	wrapped := &abortableFailing{failingSink: inner, staging: st}
	_, err := Run(context.Background(),
		SliceSource[model.SongRecord]{},
		SliceSource[model.EventRecord]{event("NextSong", "1", 1, 1542242826796, "A", "s")},
		wrapped, Options{})

	var se *SinkError
	require.ErrorAs(t, err, &se)
	require.Equal(t, model.TimeTableName, se.Table)
	require.Equal(t, 1, st.aborted)
	require.Equal(t, 0, st.committed)
}

type abortableFailing struct {
	*failingSink
	staging *stagingSink
}

func (a *abortableFailing) Commit(ctx context.Context) error { return a.staging.Commit(ctx) }

func (a *abortableFailing) Abort(ctx context.Context) error { return a.staging.Abort(ctx) }

func TestRun_CommitFailure(t *testing.T) {
	s := &stagingSink{Memory: sink.NewMemory(), commitErr: errors.New("rename failed")}
	_, err := Run(context.Background(), SliceSource[model.SongRecord]{}, SliceSource[model.EventRecord]{}, s, Options{})
	var se *SinkError
	require.ErrorAs(t, err, &se)
	require.Empty(t, se.Table)
}

func TestRun_EventSourceErrorAbortsAfterCatalog(t *testing.T) {
	s := &stagingSink{Memory: sink.NewMemory()}
	_, err := Run(context.Background(),
		SliceSource[model.SongRecord]{songRec("S1", "T", "A1", "N")},
		failingSource[model.EventRecord]{err: errors.New("403")},
		s, Options{})
	var se *SourceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, LogDataInput, se.Input)
	require.Equal(t, 1, s.aborted)
	require.Equal(t, []string{model.SongsTableName, model.ArtistsTableName}, s.Names())
}

func TestRun_Deterministic(t *testing.T) {
	songs := SliceSource[model.SongRecord]{
		songRec("S2", "b", "A2", "Two"),
		songRec("S1", "a", "A1", "One"),
		songRec("S2", "dup", "A1", "One"),
	}
	events := SliceSource[model.EventRecord]{
		event("NextSong", "9", 2, 1542242826796, "One", "a"),
		event("NextSong", "10", 1, 1541105830796, "Two", "b"),
		event("NextSong", "9", 1, 1543537327796, "One", "a"),
	}
	a, b := sink.NewMemory(), sink.NewMemory()
	_, err := Run(context.Background(), songs, events, a, Options{})
	require.NoError(t, err)
	_, err = Run(context.Background(), songs, events, b, Options{})
	require.NoError(t, err)
	for _, name := range model.TableNames {
		require.Equal(t, table(t, a, name).Rows, table(t, b, name).Rows, name)
	}
}

func TestWarnings_CapsMessages(t *testing.T) {
	w := newWarnings(2)
	for i := 0; i < 5; i++ {
		w.add(&model.RecordError{Stage: "decode", Index: i, Err: errors.New("bad")})
	}
	w.add(&model.RecordError{Stage: "timestamp", Index: 0, Err: errors.New("bad")})
	require.Equal(t, 6, w.total())
	require.Len(t, w.first, 2)
	require.Equal(t, map[string]int{"decode": 5, "timestamp": 1}, w.byStage)
}
